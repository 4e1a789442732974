package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/credzi/credzi/internal/config"
	"github.com/credzi/credzi/internal/handler"
	"github.com/credzi/credzi/internal/middleware"
	"github.com/credzi/credzi/internal/repository"
)

// Handlers bundles every handler the API mounts so registration stays in
// one place.
type Handlers struct {
	Users        *handler.UserHandler
	Metadata     *handler.MetadataHandler
	Prepare      *handler.PrepareHandler
	Certificates *handler.CertificateHandler
	OptIn        *handler.OptInHandler
	Transfer     *handler.TransferHandler
	Verify       *handler.VerifyHandler
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and uptime monitors hit this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterAPI mounts the full API surface under /api.
//
// Most endpoints are open: signup and wallet check establish the session in
// the first place, and issuance/transfer requests carry transactions signed
// out-of-band by the wallet, which is its own proof of authority. The
// organization dashboard endpoints additionally require a wallet session
// with an organization or admin role, since they expose records across
// learners. Verification GETs sit behind the Redis rate limiter and
// response cache; rdb may be nil, in which case both middlewares pass
// requests straight through.
func RegisterAPI(e *echo.Echo, cfg config.Config, h Handlers, users *repository.UserRepo, rdb *redis.Client) {
	api := e.Group("/api")

	// Account lifecycle.
	api.POST("/signup", h.Users.Signup)
	api.POST("/wallet-check", h.Users.WalletCheck)
	api.PUT("/update-profile", h.Users.UpdateProfile)

	// Issuance flow: pin metadata, build the unsigned transaction, submit
	// the signed mint, then deliver once the learner has opted in.
	api.POST("/uploadMetadata", h.Metadata.UploadMetadata)
	api.POST("/prepareTransaction", h.Prepare.PrepareTransaction)
	api.POST("/issueCertificate", h.Certificates.IssueCertificate)
	api.POST("/optInAsset", h.OptIn.OptInAsset)
	api.POST("/transferCertificate", h.Transfer.TransferCertificate)

	// Learner views.
	api.GET("/certificates/learner", h.Certificates.ListLearnerCertificates)
	api.GET("/certificates/count", h.Certificates.CountLearnerCertificates)
	api.GET("/users/certificates", h.Certificates.ListUserCertificates)

	// Organization dashboard, behind a re-validated wallet session.
	org := api.Group("", middleware.WalletSession(cfg.JWTSecret, users), middleware.RequireRole("organization", "admin"))
	org.GET("/certificates/pending", h.Transfer.ListPendingCertificates)
	org.POST("/certificates/update-status", h.Transfer.UpdateTransferStatus)

	// Public verification, rate limited and cached.
	verify := api.Group("",
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewVerifyCache(config.LoadCacheConfig(), rdb))
	verify.GET("/certificates/verify", h.Verify.VerifyCertificate)
	verify.GET("/verify/nft", h.Verify.VerifyNFT)
}
