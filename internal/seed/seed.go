// Package seed loads the default permissions, modules, roles and users.
// Every step skips rows that already exist, so Run can be repeated.
package seed

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

type permissionSeed struct {
	name, code, description string
}

var permissions = []permissionSeed{
	{"Ver usuarios", "usuarios.ver", "Permite ver la lista de usuarios"},
	{"Crear usuarios", "usuarios.crear", "Permite crear nuevos usuarios"},
	{"Editar usuarios", "usuarios.editar", "Permite editar usuarios existentes"},
	{"Eliminar usuarios", "usuarios.eliminar", "Permite eliminar usuarios"},
	{"Ver roles", "roles.ver", "Permite ver la lista de roles"},
	{"Crear roles", "roles.crear", "Permite crear nuevos roles"},
	{"Editar roles", "roles.editar", "Permite editar roles existentes"},
	{"Eliminar roles", "roles.eliminar", "Permite eliminar roles"},
	{"Ver módulos", "modulos.ver", "Permite ver la lista de módulos"},
	{"Crear módulos", "modulos.crear", "Permite crear nuevos módulos"},
	{"Editar módulos", "modulos.editar", "Permite editar módulos existentes"},
	{"Eliminar módulos", "modulos.eliminar", "Permite eliminar módulos"},
	{"Ver permisos", "permisos.ver", "Permite ver la lista de permisos"},
	{"Crear permisos", "permisos.crear", "Permite crear nuevos permisos"},
	{"Editar permisos", "permisos.editar", "Permite editar permisos existentes"},
	{"Eliminar permisos", "permisos.eliminar", "Permite eliminar permisos"},
}

type moduleSeed struct {
	name, description, route, icon string
	order                          int
	permissions                    []string
}

var modules = []moduleSeed{
	{"Dashboard", "Panel principal", "/dashboard", "dashboard", 1, nil},
	{"Usuarios", "Gestión de usuarios", "/usuarios", "users", 2,
		[]string{"usuarios.ver", "usuarios.crear", "usuarios.editar", "usuarios.eliminar"}},
	{"Roles", "Gestión de roles", "/roles", "shield", 3,
		[]string{"roles.ver", "roles.crear", "roles.editar", "roles.eliminar"}},
	{"Módulos", "Gestión de módulos", "/modulos", "grid", 4,
		[]string{"modulos.ver", "modulos.crear", "modulos.editar", "modulos.eliminar"}},
	{"Permisos", "Gestión de permisos", "/permisos", "key", 5,
		[]string{"permisos.ver", "permisos.crear", "permisos.editar", "permisos.eliminar"}},
}

// A nil list grants every permission or module.
type roleSeed struct {
	name, description string
	permissions       []string
	modules           []string
}

var roles = []roleSeed{
	{"Super Administrador", "Acceso completo al sistema", nil, nil},
	{"Administrador", "Administrador con permisos limitados",
		[]string{"usuarios.ver", "usuarios.crear", "usuarios.editar", "roles.ver", "modulos.ver"},
		[]string{"Dashboard", "Usuarios", "Roles", "Módulos"}},
	{"Usuario", "Usuario estándar",
		[]string{"usuarios.ver", "modulos.ver"},
		[]string{"Dashboard", "Usuarios"}},
}

type userSeed struct {
	username, email, fullName, password string
	superuser                           bool
	role                                string
	person                              rbac.PersonInput
}

func str(s string) *string { return &s }

func date(y int, m time.Month, d int) *models.Date {
	v := models.NewDate(y, m, d)
	return &v
}

func gender(g models.Gender) *models.Gender { return &g }

var users = []userSeed{
	{
		username: "admin", email: "admin@example.com", fullName: "Administrador del Sistema",
		password: "admin123", superuser: true, role: "Super Administrador",
		person: rbac.PersonInput{
			NationalID:    str("12345678"),
			BirthDate:     date(1990, time.January, 15),
			Gender:        gender(models.GenderMale),
			Phone:         str("+1234567890"),
			Address:       str("Calle Principal 123"),
			City:          str("Ciudad Capital"),
			StateProvince: str("Estado"),
			PostalCode:    str("12345"),
			Country:       str("España"),
			Bio:           str("Administrador principal del sistema"),
			LinkedIn:      str("https://linkedin.com/in/admin"),
			GitHub:        str("https://github.com/admin"),
		},
	},
	{
		username: "user1", email: "user1@example.com", fullName: "Usuario de Prueba",
		password: "user123", role: "Usuario",
		person: rbac.PersonInput{
			NationalID:    str("87654321"),
			BirthDate:     date(1995, time.June, 20),
			Gender:        gender(models.GenderFemale),
			Phone:         str("+0987654321"),
			AltPhone:      str("+1111111111"),
			AltEmail:      str("user1.alternativo@example.com"),
			Address:       str("Avenida Secundaria 456"),
			City:          str("Ciudad Secundaria"),
			StateProvince: str("Provincia"),
			PostalCode:    str("54321"),
			Country:       str("España"),
			Bio:           str("Usuario de prueba del sistema"),
			Website:       str("https://user1.example.com"),
			Twitter:       str("https://twitter.com/user1"),
		},
	},
}

// Run seeds everything in one transaction.
func Run(ctx context.Context, db *gorm.DB, lg *zap.SugaredLogger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := rbac.New(tx, nil)
		permIDs, err := seedPermissions(tx, s)
		if err != nil {
			return err
		}
		modIDs, err := seedModules(tx, s, permIDs)
		if err != nil {
			return err
		}
		roleIDs, err := seedRoles(tx, s, permIDs, modIDs)
		if err != nil {
			return err
		}
		if err := seedUsers(tx, s, roleIDs, lg); err != nil {
			return err
		}
		lg.Infow("seed complete", "permissions", len(permIDs), "modules", len(modIDs), "roles", len(roleIDs))
		return nil
	})
}

// lookup returns the id of the row of model matching column, or 0.
func lookup(tx *gorm.DB, model any, column, value string) (uint, error) {
	var ids []uint
	if err := tx.Model(model).Where(column+" = ?", value).Limit(1).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func pick(ids map[string]uint, keys []string, all []string) []uint {
	if keys == nil {
		keys = all
	}
	out := make([]uint, 0, len(keys))
	for _, k := range keys {
		if id, ok := ids[k]; ok {
			out = append(out, id)
		}
	}
	return out
}

func seedPermissions(tx *gorm.DB, s *rbac.Service) (map[string]uint, error) {
	ids := make(map[string]uint, len(permissions))
	for _, p := range permissions {
		id, err := lookup(tx, &models.Permission{}, "code", p.code)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			created, err := s.CreatePermission(rbac.PermissionCreate{Name: p.name, Code: p.code, Description: str(p.description)})
			if err != nil {
				return nil, err
			}
			id = created.ID
		}
		ids[p.code] = id
	}
	return ids, nil
}

func seedModules(tx *gorm.DB, s *rbac.Service, permIDs map[string]uint) (map[string]uint, error) {
	ids := make(map[string]uint, len(modules))
	for _, m := range modules {
		id, err := lookup(tx, &models.Module{}, "name", m.name)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			created, err := s.CreateModule(rbac.ModuleCreate{
				Name:          m.name,
				Description:   str(m.description),
				Route:         str(m.route),
				Icon:          str(m.icon),
				Kind:          models.ModuleMenu,
				Order:         m.order,
				PermissionIDs: pick(permIDs, m.permissions, []string{}),
			})
			if err != nil {
				return nil, err
			}
			id = created.ID
		}
		ids[m.name] = id
	}
	return ids, nil
}

func seedRoles(tx *gorm.DB, s *rbac.Service, permIDs, modIDs map[string]uint) (map[string]uint, error) {
	allPerms := make([]string, 0, len(permissions))
	for _, p := range permissions {
		allPerms = append(allPerms, p.code)
	}
	allMods := make([]string, 0, len(modules))
	for _, m := range modules {
		allMods = append(allMods, m.name)
	}

	ids := make(map[string]uint, len(roles))
	for _, r := range roles {
		id, err := lookup(tx, &models.Role{}, "name", r.name)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			created, err := s.CreateRole(rbac.RoleCreate{
				Name:          r.name,
				Description:   str(r.description),
				PermissionIDs: pick(permIDs, r.permissions, allPerms),
				ModuleIDs:     pick(modIDs, r.modules, allMods),
			})
			if err != nil {
				return nil, err
			}
			id = created.ID
		}
		ids[r.name] = id
	}
	return ids, nil
}

func seedUsers(tx *gorm.DB, s *rbac.Service, roleIDs map[string]uint, lg *zap.SugaredLogger) error {
	for _, u := range users {
		id, err := lookup(tx, &models.User{}, "username", u.username)
		if err != nil {
			return err
		}
		if id == 0 {
			superuser := u.superuser
			created, err := s.CreateUser(rbac.UserCreate{
				Username:    u.username,
				Email:       u.email,
				FullName:    u.fullName,
				Password:    u.password,
				IsSuperuser: &superuser,
				RoleIDs:     pick(roleIDs, []string{u.role}, nil),
			})
			if err != nil {
				return err
			}
			id = created.ID
			lg.Infow("seeded user", "username", u.username)
		}
		_, err = s.GetPerson(id)
		if err == nil {
			continue
		}
		if !apperr.IsCode(err, apperr.CodeNotFound) {
			return err
		}
		if _, err := s.CreatePerson(id, u.person); err != nil {
			return err
		}
	}
	return nil
}
