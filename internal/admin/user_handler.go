package admin

import (
	"strings"

	"ppe-backend/internal/auth"
	"ppe-backend/internal/database"
	"ppe-backend/internal/models"
	"ppe-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"required,oneof=admin dispatcher warehouse consultant"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin dispatcher warehouse consultant"`
}

func findUser(c *fiber.Ctx) (*models.User, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	var u models.User
	if err := database.DB.First(&u, id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return &u, nil
}

// lastAdmin reports whether u is the only remaining administrator.
func lastAdmin(tx *gorm.DB, u *models.User) (bool, error) {
	if u.Role != models.RoleAdmin {
		return false, nil
	}
	var count int64
	if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	return count <= 1, nil
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.User{})
		if role := c.Query("role"); role != "" {
			if !models.Role(role).Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "unknown role")
			}
			q = q.Where("role = ?", role)
		}

		var users []models.User
		if err := q.Order("last_name asc, first_name asc, id asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list users")
		}

		res := make([]auth.UserResponse, 0, len(users))
		for i := range users {
			res = append(res, auth.NewUserResponse(&users[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		u := models.User{
			FirstName:    strings.TrimSpace(body.FirstName),
			LastName:     strings.TrimSpace(body.LastName),
			Email:        strings.ToLower(strings.TrimSpace(body.Email)),
			PasswordHash: string(hash),
			Role:         models.Role(body.Role),
		}
		if err := database.DB.Create(&u).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return &validation.Error{Fields: map[string]string{"email": "already registered"}}
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(auth.NewUserResponse(&u))
	}
}

// PUT /api/admin/users/:id/role
func UpdateUserRoleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := findUser(c)
		if err != nil {
			return err
		}

		var body UpdateRoleRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		role := models.Role(body.Role)

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if role != models.RoleAdmin {
				last, err := lastAdmin(tx, u)
				if err != nil {
					return err
				}
				if last {
					return fiber.NewError(fiber.StatusBadRequest, "the last administrator cannot be demoted")
				}
			}
			return tx.Model(&models.User{}).Where("id = ?", u.ID).Update("role", role).Error
		})
		if err != nil {
			return err
		}
		u.Role = role

		return c.JSON(auth.NewUserResponse(u))
	}
}

// DELETE /api/admin/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := findUser(c)
		if err != nil {
			return err
		}
		if self, _ := auth.CurrentUserID(c); self == u.ID {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot delete your own account")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			last, err := lastAdmin(tx, u)
			if err != nil {
				return err
			}
			if last {
				return fiber.NewError(fiber.StatusBadRequest, "the last administrator cannot be deleted")
			}
			return tx.Delete(&models.User{}, u.ID).Error
		})
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"message": "user deleted"})
	}
}
