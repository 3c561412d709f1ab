package rbac

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/models"
)

// PersonInput carries profile fields for create and update. Field names match
// models.Person so copier can map them; nil fields are left untouched.
type PersonInput struct {
	NationalID    *string        `json:"national_id"`
	BirthDate     *models.Date   `json:"birth_date"`
	Gender        *models.Gender `json:"gender"`
	Phone         *string        `json:"phone"`
	AltPhone      *string        `json:"alt_phone"`
	AltEmail      *string        `json:"alt_email"`
	Address       *string        `json:"address"`
	City          *string        `json:"city"`
	StateProvince *string        `json:"state_province"`
	PostalCode    *string        `json:"postal_code"`
	Country       *string        `json:"country"`
	PhotoURL      *string        `json:"photo_url"`
	Bio           *string        `json:"bio"`
	Website       *string        `json:"website"`
	LinkedIn      *string        `json:"linkedin"`
	Twitter       *string        `json:"twitter"`
	GitHub        *string        `json:"github"`
}

// personCopy applies only the provided fields. Dates are assigned as-is so
// copier does not route them through Date.Scan.
var personCopy = copier.Option{
	IgnoreEmpty: true,
	Converters: []copier.TypeConverter{{
		SrcType: (*models.Date)(nil),
		DstType: (*models.Date)(nil),
		Fn:      func(src interface{}) (interface{}, error) { return src, nil },
	}},
}

func (in PersonInput) validate() error {
	if in.Gender != nil && !in.Gender.Valid() {
		return apperr.InvalidInput("gender", "must be one of male, female, other, undisclosed")
	}
	if in.AltEmail != nil && *in.AltEmail != "" {
		if _, err := mail.ParseAddress(*in.AltEmail); err != nil {
			return apperr.InvalidInput("alt_email", "not a valid address")
		}
	}
	return firstErr(
		checkOptLen("national_id", in.NationalID, 20),
		checkOptLen("phone", in.Phone, 20),
		checkOptLen("alt_phone", in.AltPhone, 20),
		checkOptLen("alt_email", in.AltEmail, 255),
		checkOptLen("city", in.City, 100),
		checkOptLen("state_province", in.StateProvince, 100),
		checkOptLen("postal_code", in.PostalCode, 20),
		checkOptLen("country", in.Country, 100),
		checkOptLen("photo_url", in.PhotoURL, 500),
		checkOptLen("website", in.Website, 255),
		checkOptLen("linkedin", in.LinkedIn, 255),
		checkOptLen("twitter", in.Twitter, 255),
		checkOptLen("github", in.GitHub, 255),
	)
}

func (s *Service) findPerson(userID uint) (*models.Person, error) {
	var p models.Person
	err := s.db.Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetPerson(userID uint) (*models.Person, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	p, err := s.findPerson(userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("person profile")
	}
	return p, nil
}

// checkNationalIDFree fails when another profile than selfID holds nationalID.
func (s *Service) checkNationalIDFree(nationalID *string, selfID uint) error {
	if nationalID == nil || *nationalID == "" {
		return nil
	}
	taken, err := s.exists(&models.Person{}, "national_id = ? AND id <> ?", *nationalID, selfID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.AlreadyExists("national id")
	}
	return nil
}

func trimPersonInput(in *PersonInput) {
	// An empty national id would collide on the unique index.
	if in.NationalID != nil {
		v := strings.TrimSpace(*in.NationalID)
		in.NationalID = &v
		if v == "" {
			in.NationalID = nil
		}
	}
	if in.AltEmail != nil {
		v := strings.TrimSpace(*in.AltEmail)
		in.AltEmail = &v
	}
}

func (s *Service) CreatePerson(userID uint, in PersonInput) (*models.Person, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	trimPersonInput(&in)
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.findPerson(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.CodeInvalidInput, "user already has a profile; use update instead")
	}
	if err := s.checkNationalIDFree(in.NationalID, 0); err != nil {
		return nil, err
	}
	p := models.Person{UserID: userID}
	if err := copier.CopyWithOption(&p, &in, personCopy); err != nil {
		return nil, err
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, err
	}
	if err := s.audit("PERSON_CREATE", "person", p.ID, map[string]any{"user_id": userID}); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePerson applies the non-nil fields of in to the user's profile,
// creating the profile when the user has none.
func (s *Service) UpdatePerson(userID uint, in PersonInput) (*models.Person, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	p, err := s.findPerson(userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return s.CreatePerson(userID, in)
	}
	trimPersonInput(&in)
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkNationalIDFree(in.NationalID, p.ID); err != nil {
		return nil, err
	}
	if err := copier.CopyWithOption(p, &in, personCopy); err != nil {
		return nil, err
	}
	if err := s.db.Save(p).Error; err != nil {
		return nil, err
	}
	if err := s.audit("PERSON_UPDATE", "person", p.ID, map[string]any{"user_id": userID}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePerson(userID uint) error {
	p, err := s.GetPerson(userID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(p).Error; err != nil {
		return err
	}
	return s.audit("PERSON_DELETE", "person", p.ID, map[string]any{"user_id": userID})
}
