package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jhofrandev/donations-manager/internal/authn"
	"github.com/sirupsen/logrus"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Campaigns     *CampaignHandler
	Beneficiaries *BeneficiaryHandler
	Tasks         *TaskHandler
	Verifier      TokenVerifier
}

func NewRouter(h Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Route("/auth", func(pub chi.Router) {
		pub.Post("/register", h.Auth.HandleRegister)
		pub.Post("/login", h.Auth.HandleLogin)
		pub.Post("/refresh", h.Auth.HandleRefresh)
	})

	r.Group(func(priv chi.Router) {
		priv.Use(RequireAuth(h.Verifier))

		priv.Route("/campaigns", func(api chi.Router) {
			api.Use(RequirePermission(authn.ResourceCampaigns))
			api.Get("/", h.Campaigns.HandleList)
			api.Post("/", h.Campaigns.HandleCreate)
			api.Get("/{campaign_id}", h.Campaigns.HandleGet)
			api.Put("/{campaign_id}", h.Campaigns.HandleUpdate)
			api.Patch("/{campaign_id}", h.Campaigns.HandleUpdate)
			api.Delete("/{campaign_id}", h.Campaigns.HandleDelete)
		})

		priv.Route("/beneficiaries", func(api chi.Router) {
			api.Use(RequirePermission(authn.ResourceBeneficiaries))
			api.Get("/", h.Beneficiaries.HandleList)
			api.Post("/", h.Beneficiaries.HandleCreate)
			api.Get("/{beneficiary_id}", h.Beneficiaries.HandleGet)
			api.Put("/{beneficiary_id}", h.Beneficiaries.HandleUpdate)
			api.Patch("/{beneficiary_id}", h.Beneficiaries.HandleUpdate)
			api.Delete("/{beneficiary_id}", h.Beneficiaries.HandleDelete)
		})

		priv.Route("/tasks", func(api chi.Router) {
			api.Use(RequirePermission(authn.ResourceTasks))
			api.Get("/", h.Tasks.HandleList)
			api.Post("/", h.Tasks.HandleCreate)
			api.Get("/{task_id}", h.Tasks.HandleGet)
			api.Put("/{task_id}", h.Tasks.HandleUpdate)
			api.Patch("/{task_id}", h.Tasks.HandleUpdate)
			api.Delete("/{task_id}", h.Tasks.HandleDelete)
		})
	})

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
