// Package httpapi is the JSON HTTP interface of the server, built on gin.
// Every response is an envelope {success, data, message, error}.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/dmitrijs2005/docchat/internal/server/services"
	"github.com/dmitrijs2005/docchat/internal/server/storage"
	"github.com/gin-gonic/gin"
)

type Accounts interface {
	Signup(ctx context.Context, email, password, name string) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, actorID, userID string) error
	SetRole(ctx context.Context, actorID, userID, role string) error
	ListUserBlobs(ctx context.Context, userID string) ([]storage.Object, error)
}

type Chats interface {
	List(ctx context.Context, userID string) ([]*models.ChatSummary, error)
	Create(ctx context.Context, userID, title, message string) (*models.Chat, error)
	Get(ctx context.Context, userID, chatID string) (*models.Chat, error)
	Update(ctx context.Context, userID, chatID string, upd services.ChatUpdate) (*models.Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
	SendMessage(ctx context.Context, userID, chatID, message, documentID string) (*services.Reply, error)
}

type Documents interface {
	List(ctx context.Context, userID string) ([]*models.Document, error)
	Upload(ctx context.Context, userID string, in services.Upload) (*models.Document, error)
	Get(ctx context.Context, userID, id string) (*models.Document, string, error)
	Delete(ctx context.Context, userID, id string) error
}

// Handler serves the API routes.
type Handler struct {
	accounts      Accounts
	chats         Chats
	documents     Documents
	gate          *auth.Gate
	cookie        auth.CookieOptions
	maxUploadSize int64
	logger        logging.Logger
}

func NewHandler(a Accounts, c Chats, d Documents, g *auth.Gate, cookie auth.CookieOptions, maxUploadSize int64, logger logging.Logger) *Handler {
	return &Handler{
		accounts:      a,
		chats:         c,
		documents:     d,
		gate:          g,
		cookie:        cookie,
		maxUploadSize: maxUploadSize,
		logger:        logger.With("module", "httpapi"),
	}
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(Recovery(h.logger), RequestLogger(h.logger), CORS(allowedOrigins))

	r.GET("/healthz", h.health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.signup)
	authGroup.POST("/login", h.login)
	authGroup.POST("/logout", h.logout)
	authGroup.GET("/me", RequireAuth(h.gate), h.me)

	chats := api.Group("/chats", RequireAuth(h.gate))
	chats.GET("", h.listChats)
	chats.POST("", h.createChat)
	chats.GET("/:id", h.getChat)
	chats.PUT("/:id", h.updateChat)
	chats.DELETE("/:id", h.deleteChat)
	chats.POST("/:id/message", h.sendMessage)

	docs := api.Group("/documents", RequireAuth(h.gate))
	docs.GET("", h.listDocuments)
	docs.POST("", h.uploadDocument)
	docs.GET("/:id", h.getDocument)
	docs.DELETE("/:id", h.deleteDocument)

	admin := api.Group("/admin", RequireRole(h.gate, auth.RoleAdmin))
	admin.GET("/users", h.listUsers)
	admin.DELETE("/users/:id", h.deleteUser)
	admin.PUT("/users/:id/role", h.setRole)
	admin.GET("/users/:id/blobs", h.listUserBlobs)

	return r
}

func (h *Handler) health(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"status": "ok"}, "")
}

// claims returns the identity attached by RequireAuth.
func claims(c *gin.Context) *auth.Claims {
	cl, _ := auth.ClaimsFromContext(c.Request.Context())
	return cl
}
