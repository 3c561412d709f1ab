package rbac

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"rbacadmin/internal/apperr"
)

var permissionCodeRe = regexp.MustCompile(`^[a-z0-9._]+$`)

func checkLen(field, v string, lo, hi int) error {
	n := utf8.RuneCountInString(v)
	if n < lo {
		if lo == 1 {
			return apperr.InvalidInput(field, "must not be empty")
		}
		return apperr.Newf(apperr.CodeInvalidInput, "invalid %s: must be at least %d characters", field, lo)
	}
	if hi > 0 && n > hi {
		return apperr.Newf(apperr.CodeInvalidInput, "invalid %s: must be at most %d characters", field, hi)
	}
	return nil
}

func checkOptLen(field string, v *string, hi int) error {
	if v == nil {
		return nil
	}
	return checkLen(field, *v, 0, hi)
}

func normalizeEmail(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return "", apperr.InvalidInput("email", "not a valid address")
	}
	return v, checkLen("email", v, 3, 255)
}

func checkPermissionCode(v string) error {
	if err := checkLen("code", v, 1, 50); err != nil {
		return err
	}
	if !permissionCodeRe.MatchString(v) {
		return apperr.InvalidInput("code", "only lowercase letters, digits, '.' and '_' are allowed")
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
