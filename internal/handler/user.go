package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/credzi/credzi/internal/algorand"
	"github.com/credzi/credzi/internal/config"
	"github.com/credzi/credzi/internal/model"
	"github.com/credzi/credzi/internal/repository"
	"github.com/credzi/credzi/internal/utils"
)

// UserHandler bundles dependencies for signup, wallet-session and profile
// endpoints.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type signupReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	WalletID  string `json:"walletId"`
	Role      string `json:"role"` // learner | organization | admin
}

type userPart struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	WalletID  string    `json:"walletId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserPart(u *model.User) userPart {
	return userPart{
		ID:        u.ID.Hex(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		WalletID:  u.WalletID,
		CreatedAt: u.CreatedAt,
	}
}

// Signup handles POST /api/signup: create a user record bound to an email
// and optionally a connected wallet.
func (h *UserHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "First name, last name, and email are required"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case model.RoleLearner, model.RoleOrganization, model.RoleAdmin:
	case "":
		role = model.RoleLearner
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if w := strings.TrimSpace(req.WalletID); w != "" {
		if err := algorand.ValidateAddress("user", w); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid wallet address"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, &model.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		WalletID:  req.WalletID,
		Role:      role,
	})
	if err != nil {
		switch err {
		case repository.ErrEmailExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "User with this email already exists"})
		case repository.ErrWalletExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "User with this wallet already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"user":    toUserPart(u),
	})
}

type walletCheckReq struct {
	WalletID string `json:"walletId"`
}

// WalletCheck handles POST /api/wallet-check: report whether a wallet is
// registered and, when it is, issue a session token for the administrative
// endpoints. The token only names the wallet; every protected request
// re-validates it against the store.
func (h *UserHandler) WalletCheck(c echo.Context) error {
	var req walletCheckReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.WalletID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Wallet ID is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByWallet(ctx, req.WalletID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusOK, echo.Map{"exists": false, "message": "Wallet not found in database"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wallet lookup failed"})
	}

	session, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.WalletID, u.Role, h.Cfg.SessionTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"exists": true,
		"user":   toUserPart(u),
		"session": echo.Map{
			"token":   session.Token,
			"expires": session.Exp,
		},
	})
}

type updateProfileReq struct {
	WalletID string `json:"walletId"`

	Phone string `json:"phone,omitempty"`
	Bio   string `json:"bio,omitempty"`

	Skills          []string `json:"skills,omitempty"`
	Experience      string   `json:"experience,omitempty"`
	Education       string   `json:"education,omitempty"`
	Location        string   `json:"location,omitempty"`
	GithubProfile   string   `json:"githubProfile,omitempty"`
	LinkedinProfile string   `json:"linkedinProfile,omitempty"`

	OrganizationName string `json:"organizationName,omitempty"`
	OrganizationType string `json:"organizationType,omitempty"`
	Website          string `json:"website,omitempty"`
	Description      string `json:"description,omitempty"`
	Industry         string `json:"industry,omitempty"`
	Size             string `json:"size,omitempty"`
	Address          string `json:"address,omitempty"`
	EstablishedYear  string `json:"establishedYear,omitempty"`
}

// UpdateProfile handles PUT /api/update-profile: a partial profile update
// keyed by wallet. Only known profile fields make it into the update; the
// identity fields (email, role, wallet) cannot be changed here.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.WalletID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Wallet ID is required"})
	}

	fields := bson.M{}
	setIf := func(key, val string) {
		if val != "" {
			fields[key] = strings.TrimSpace(val)
		}
	}
	setIf("phone", req.Phone)
	setIf("bio", req.Bio)
	setIf("experience", req.Experience)
	setIf("education", req.Education)
	setIf("location", req.Location)
	setIf("githubProfile", req.GithubProfile)
	setIf("linkedinProfile", req.LinkedinProfile)
	setIf("organizationName", req.OrganizationName)
	setIf("organizationType", req.OrganizationType)
	setIf("website", req.Website)
	setIf("description", req.Description)
	setIf("industry", req.Industry)
	setIf("size", req.Size)
	setIf("address", req.Address)
	setIf("establishedYear", req.EstablishedYear)
	if req.Skills != nil {
		fields["skills"] = req.Skills
	}
	if len(fields) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no profile fields to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, req.WalletID, fields)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}
