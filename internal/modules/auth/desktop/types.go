package desktop

import (
	"time"

	"github.com/mailwarden/core/internal/models"
)

type LoginDTO struct {
	Username string `json:"username"  binding:"required"`
	Password string `json:"password"  binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}

type TokenDTO struct {
	Token string `json:"token" binding:"required"`
}

type packageView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	EmailCredits     int    `json:"emailCredits"`
	ConcurrencyLimit int    `json:"concurrencyLimit"`
}

type userView struct {
	ID                 string       `json:"id"`
	Username           string       `json:"username"`
	Email              string       `json:"email"`
	Role               string       `json:"role"`
	IsActive           bool         `json:"isActive"`
	Package            *packageView `json:"package"`
	PackageEndDate     *time.Time   `json:"packageEndDate"`
	RegisteredDeviceID string       `json:"registeredDeviceId"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type verifyResponse struct {
	User userView `json:"user"`
}

func viewOf(acc *models.AccountModel) userView {
	v := userView{
		ID:                 acc.ID,
		Username:           acc.Username,
		Email:              acc.Email,
		Role:               acc.Role,
		IsActive:           acc.IsActive,
		RegisteredDeviceID: acc.BoundDevice,
	}
	if !acc.IsAdmin() {
		v.PackageEndDate = acc.PackageEnd
		if acc.Package != nil {
			v.Package = &packageView{
				ID:               acc.Package.ID,
				Name:             acc.Package.Name,
				EmailCredits:     acc.Package.EmailCredits,
				ConcurrencyLimit: acc.Package.ConcurrencyLimit,
			}
		}
	}
	return v
}
