package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is its own database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newTestService(t *testing.T) *Service {
	return New(newTestDB(t), nil)
}

func ptr[T any](v T) *T { return &v }

func mustUser(t *testing.T, s *Service, username string) *models.User {
	t.Helper()
	u, err := s.CreateUser(UserCreate{
		Username: username,
		Email:    username + "@example.com",
		FullName: "User " + username,
		Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

func mustRole(t *testing.T, s *Service, name string) *models.Role {
	t.Helper()
	r, err := s.CreateRole(RoleCreate{Name: name})
	require.NoError(t, err)
	return r
}

func mustModule(t *testing.T, s *Service, name string) *models.Module {
	t.Helper()
	m, err := s.CreateModule(ModuleCreate{Name: name})
	require.NoError(t, err)
	return m
}

func mustPermission(t *testing.T, s *Service, code string) *models.Permission {
	t.Helper()
	p, err := s.CreatePermission(PermissionCreate{Name: "perm " + code, Code: code})
	require.NoError(t, err)
	return p
}

func countRows(t *testing.T, s *Service, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func moduleIDs(mods []models.Module) []uint {
	out := make([]uint, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.ID)
	}
	return out
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	s := newTestService(t)
	mustUser(t, s, "alice")

	_, err := s.CreateUser(UserCreate{Username: "alice", Email: "other@example.com", FullName: "A", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))
	assert.Equal(t, 400, apperr.HTTPStatus(apperr.GetCode(err)))

	_, err = s.CreateUser(UserCreate{Username: "alice2", Email: "ALICE@example.com", FullName: "A", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	assert.Equal(t, int64(1), countRows(t, s, &models.User{}))
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestService(t)

	cases := map[string]UserCreate{
		"short username": {Username: "ab", Email: "ab@example.com", FullName: "A", Password: "secret123"},
		"bad email":      {Username: "abc", Email: "not-an-email", FullName: "A", Password: "secret123"},
		"empty name":     {Username: "abc", Email: "abc@example.com", FullName: " ", Password: "secret123"},
		"short password": {Username: "abc", Email: "abc@example.com", FullName: "A", Password: "123"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateUser(in)
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput), err.Error())
		})
	}
	assert.Equal(t, int64(0), countRows(t, s, &models.User{}))
}

func TestUpdateUserRechecksUniquenessOnlyOnChange(t *testing.T) {
	s := newTestService(t)
	alice := mustUser(t, s, "alice")
	mustUser(t, s, "bob")

	u, err := s.UpdateUser(alice.ID, UserUpdate{Username: ptr("alice"), FullName: ptr("Alice Liddell")})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", u.FullName)

	_, err = s.UpdateUser(alice.ID, UserUpdate{Email: ptr("bob@example.com")})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	_, err = s.UpdateUser(999, UserUpdate{FullName: ptr("x")})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestAssignRolesReplaces(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")
	a := mustRole(t, s, "A")
	b := mustRole(t, s, "B")

	require.NoError(t, s.AssignRoles(u.ID, []uint{a.ID, b.ID}))
	roles, err := s.UserRoles(u.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	require.NoError(t, s.AssignRoles(u.ID, []uint{b.ID}))
	roles, err = s.UserRoles(u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, b.ID, roles[0].ID)
	assert.Equal(t, int64(1), countRows(t, s, &models.UserRole{}))
}

func TestAssignRolesUnknownID(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")
	a := mustRole(t, s, "A")
	require.NoError(t, s.AssignRoles(u.ID, []uint{a.ID}))

	err := s.AssignRoles(u.ID, []uint{a.ID, 42})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	assert.Contains(t, apperr.Message(err), "42")

	roles, err := s.UserRoles(u.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestEffectiveModules(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")
	r1 := mustRole(t, s, "R1")
	r2 := mustRole(t, s, "R2")
	off := mustRole(t, s, "Off")
	m1 := mustModule(t, s, "M1")
	m2 := mustModule(t, s, "M2")
	m3 := mustModule(t, s, "M3")
	inactive := mustModule(t, s, "Inactive")
	hidden := mustModule(t, s, "Hidden")

	_, err := s.UpdateModule(inactive.ID, ModuleUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = s.UpdateRole(off.ID, RoleUpdate{IsActive: ptr(false)})
	require.NoError(t, err)

	require.NoError(t, s.AssignRoleModules(r1.ID, []uint{m2.ID, m1.ID, inactive.ID}))
	require.NoError(t, s.AssignRoleModules(r2.ID, []uint{m1.ID, m3.ID}))
	require.NoError(t, s.AssignRoleModules(off.ID, []uint{hidden.ID}))
	require.NoError(t, s.AssignRoles(u.ID, []uint{r1.ID, r2.ID, off.ID}))

	mods, err := s.EffectiveModules(u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{m2.ID, m1.ID, m3.ID}, moduleIDs(mods))

	// An inactive role-module link hides the module too.
	require.NoError(t, s.db.Model(&models.RoleModule{}).
		Where("role_id = ? AND module_id = ?", r2.ID, m3.ID).
		Update("is_active", false).Error)
	mods, err = s.EffectiveModules(u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{m2.ID, m1.ID}, moduleIDs(mods))

	_, err = s.EffectiveModules(999)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestUserDetail(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")
	r := mustRole(t, s, "R")
	m := mustModule(t, s, "M")
	require.NoError(t, s.AssignRoleModules(r.ID, []uint{m.ID}))
	require.NoError(t, s.AssignRoles(u.ID, []uint{r.ID}))

	d, err := s.UserDetail(u.ID)
	require.NoError(t, err)
	assert.Len(t, d.Roles, 1)
	assert.Len(t, d.Modules, 1)
	assert.Nil(t, d.Person)

	_, err = s.CreatePerson(u.ID, PersonInput{City: ptr("Lima")})
	require.NoError(t, err)
	d, err = s.UserDetail(u.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Person)
	assert.Equal(t, "Lima", *d.Person.City)
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")
	r := mustRole(t, s, "R")
	require.NoError(t, s.AssignRoles(u.ID, []uint{r.ID}))
	_, err := s.CreatePerson(u.ID, PersonInput{Phone: ptr("555")})
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(u.ID))
	assert.Equal(t, int64(0), countRows(t, s, &models.User{}))
	assert.Equal(t, int64(0), countRows(t, s, &models.UserRole{}))
	assert.Equal(t, int64(0), countRows(t, s, &models.Person{}))
	assert.Equal(t, int64(1), countRows(t, s, &models.Role{}))

	assert.True(t, apperr.IsCode(s.DeleteUser(u.ID), apperr.CodeNotFound))
}

func TestDeleteRoleKeepsLinkedEntities(t *testing.T) {
	s := newTestService(t)
	p := mustPermission(t, s, "usuarios.read")
	m := mustModule(t, s, "Usuarios")
	r, err := s.CreateRole(RoleCreate{Name: "Admin", PermissionIDs: []uint{p.ID}, ModuleIDs: []uint{m.ID}})
	require.NoError(t, err)
	u := mustUser(t, s, "alice")
	require.NoError(t, s.AssignRoles(u.ID, []uint{r.ID}))

	d, err := s.RoleDetail(r.ID)
	require.NoError(t, err)
	assert.Len(t, d.Permissions, 1)
	assert.Len(t, d.Modules, 1)
	assert.Equal(t, int64(1), d.UsersCount)

	require.NoError(t, s.DeleteRole(r.ID))
	assert.Equal(t, int64(0), countRows(t, s, &models.RolePermission{}))
	assert.Equal(t, int64(0), countRows(t, s, &models.RoleModule{}))
	assert.Equal(t, int64(0), countRows(t, s, &models.UserRole{}))
	assert.Equal(t, int64(1), countRows(t, s, &models.Permission{}))
	assert.Equal(t, int64(1), countRows(t, s, &models.Module{}))
	assert.Equal(t, int64(1), countRows(t, s, &models.User{}))
}

func TestRoleNameUniqueness(t *testing.T) {
	s := newTestService(t)
	a := mustRole(t, s, "A")
	mustRole(t, s, "B")

	_, err := s.CreateRole(RoleCreate{Name: "A"})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	_, err = s.UpdateRole(a.ID, RoleUpdate{Name: ptr("B")})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	r, err := s.UpdateRole(a.ID, RoleUpdate{Name: ptr("A"), Description: ptr("same name")})
	require.NoError(t, err)
	assert.Equal(t, "same name", *r.Description)
}

func TestModuleParentChecks(t *testing.T) {
	s := newTestService(t)
	root := mustModule(t, s, "Root")
	child, err := s.CreateModule(ModuleCreate{Name: "Child", ParentID: &root.ID, Order: 2})
	require.NoError(t, err)
	grand, err := s.CreateModule(ModuleCreate{Name: "Grand", ParentID: &child.ID})
	require.NoError(t, err)

	_, err = s.CreateModule(ModuleCreate{Name: "Orphan", ParentID: ptr(uint(999))})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	_, err = s.UpdateModule(root.ID, ModuleUpdate{ParentID: &root.ID})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	_, err = s.UpdateModule(root.ID, ModuleUpdate{ParentID: &grand.ID})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	d, err := s.ModuleDetail(root.ID)
	require.NoError(t, err)
	require.Len(t, d.Children, 1)
	assert.Equal(t, child.ID, d.Children[0].ID)

	require.NoError(t, s.DeleteModule(child.ID))
	g, err := s.GetModule(grand.ID)
	require.NoError(t, err)
	assert.Nil(t, g.ParentID)
}

func TestModuleKindAndListing(t *testing.T) {
	s := newTestService(t)
	_, err := s.CreateModule(ModuleCreate{Name: "Bad", Kind: "widget"})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	first, err := s.CreateModule(ModuleCreate{Name: "Later", Order: 5})
	require.NoError(t, err)
	assert.Equal(t, models.ModuleMenu, first.Kind)
	second, err := s.CreateModule(ModuleCreate{Name: "Sooner", Order: 1, Kind: models.ModulePage})
	require.NoError(t, err)
	third, err := s.CreateModule(ModuleCreate{Name: "Off", Order: 3, IsActive: ptr(false)})
	require.NoError(t, err)

	all, err := s.ListModules(Page{}, ModuleFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID, third.ID, first.ID}, moduleIDs(all))

	active, err := s.ListModules(Page{}, ModuleFilter{IsActive: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID, first.ID}, moduleIDs(active))

	paged, err := s.ListModules(Page{Skip: 1, Limit: 1}, ModuleFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{third.ID}, moduleIDs(paged))
}

func TestModulePermissions(t *testing.T) {
	s := newTestService(t)
	p1 := mustPermission(t, s, "a.read")
	p2 := mustPermission(t, s, "a.write")
	m, err := s.CreateModule(ModuleCreate{Name: "A", PermissionIDs: []uint{p1.ID, p2.ID}})
	require.NoError(t, err)

	_, err = s.UpdateModule(m.ID, ModuleUpdate{PermissionIDs: []uint{p2.ID}})
	require.NoError(t, err)
	d, err := s.ModuleDetail(m.ID)
	require.NoError(t, err)
	require.Len(t, d.Permissions, 1)
	assert.Equal(t, p2.ID, d.Permissions[0].ID)

	pd, err := s.PermissionDetail(p2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pd.ModulesCount)
	assert.Equal(t, int64(0), pd.RolesCount)

	require.NoError(t, s.DeleteModule(m.ID))
	assert.Equal(t, int64(0), countRows(t, s, &models.ModulePermission{}))
	assert.Equal(t, int64(2), countRows(t, s, &models.Permission{}))
}

func TestPermissionValidationAndUniqueness(t *testing.T) {
	s := newTestService(t)
	p := mustPermission(t, s, "roles.read")

	_, err := s.CreatePermission(PermissionCreate{Name: "x", Code: "Roles-Read"})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	_, err = s.CreatePermission(PermissionCreate{Name: "other", Code: "roles.read"})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	_, err = s.CreatePermission(PermissionCreate{Name: p.Name, Code: "roles.write"})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	r := mustRole(t, s, "R")
	require.NoError(t, s.AssignRolePermissions(r.ID, []uint{p.ID}))
	require.NoError(t, s.DeletePermission(p.ID))
	assert.Equal(t, int64(0), countRows(t, s, &models.RolePermission{}))
	assert.Equal(t, int64(1), countRows(t, s, &models.Role{}))
}

func TestPersonLifecycle(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")
	other := mustUser(t, s, "bob")

	_, err := s.GetPerson(u.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	bd := models.NewDate(1990, 5, 17)
	p, err := s.CreatePerson(u.ID, PersonInput{
		NationalID: ptr("12345678"),
		BirthDate:  &bd,
		Gender:     ptr(models.GenderFemale),
		City:       ptr("Lima"),
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)

	_, err = s.CreatePerson(u.ID, PersonInput{City: ptr("Cusco")})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
	assert.Contains(t, apperr.Message(err), "use update instead")

	_, err = s.CreatePerson(other.ID, PersonInput{NationalID: ptr("12345678")})
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyExists))

	_, err = s.CreatePerson(other.ID, PersonInput{Gender: ptr(models.Gender("robot"))})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	updated, err := s.UpdatePerson(u.ID, PersonInput{Phone: ptr("555-0101")})
	require.NoError(t, err)
	assert.Equal(t, "555-0101", *updated.Phone)
	assert.Equal(t, "Lima", *updated.City)
	assert.Equal(t, "12345678", *updated.NationalID)

	got, err := s.GetPerson(u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, "1990-05-17", got.BirthDate.String())

	created, err := s.UpdatePerson(other.ID, PersonInput{Country: ptr("PE")})
	require.NoError(t, err)
	assert.Equal(t, other.ID, created.UserID)

	require.NoError(t, s.DeletePerson(u.ID))
	assert.True(t, apperr.IsCode(s.DeletePerson(u.ID), apperr.CodeNotFound))
}

func TestAuthenticate(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")

	got, err := s.Authenticate("alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, errUnknown := s.Authenticate("nobody", "secret123")
	_, errWrong := s.Authenticate("alice", "wrong-pass")
	assert.True(t, apperr.IsCode(errUnknown, apperr.CodeUnauthorized))
	assert.True(t, apperr.IsCode(errWrong, apperr.CodeUnauthorized))
	assert.Equal(t, apperr.Message(errUnknown), apperr.Message(errWrong))

	_, err = s.UpdateUser(u.ID, UserUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = s.Authenticate("alice", "secret123")
	require.Error(t, err)
	assert.Equal(t, 403, apperr.HTTPStatus(apperr.GetCode(err)))

	_, err = s.Authenticate("alice", "wrong-pass")
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))
}

func TestChangePassword(t *testing.T) {
	s := newTestService(t)
	u := mustUser(t, s, "alice")

	err := s.ChangePassword(u.ID, "nope", "newsecret")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	require.NoError(t, s.ChangePassword(u.ID, "secret123", "newsecret"))
	_, err = s.Authenticate("alice", "newsecret")
	assert.NoError(t, err)
}

func TestAuditTrail(t *testing.T) {
	db := newTestDB(t)
	admin := mustUser(t, New(db, nil), "admin")

	s := New(db, admin)
	mustRole(t, s, "R")

	mine, err := s.ListAuditLogs(Page{}, &admin.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "ROLE_CREATE", mine[0].Action)
	assert.JSONEq(t, `{"name":"R"}`, string(mine[0].Metadata))

	all, err := s.ListAuditLogs(Page{}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
