package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reelacademy/ra-lms/internal/middleware"
)

// Deps collects everything the router wires together. Constructed once in
// main and passed by reference.
type Deps struct {
	License  *LicenseHandler
	Binding  *BindingHandler
	Playback *PlaybackHandler
	Events   *PlaybackEventsHandler
	Admin    *AdminHandler

	Auth      *middleware.Auth
	RateLimit *middleware.RateLimit
	Observer  middleware.HTTPObserver

	MetricsHandler http.Handler
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS)

	timed := func(route string, h http.HandlerFunc) http.Handler {
		return middleware.Metrics(d.Observer, route)(h)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Validation boundary.
		r.Method("POST", "/license/validate",
			d.RateLimit.ByIP("license_validate")(timed("license_validate", d.License.Validate)))
		r.Method("POST", "/license/refresh",
			timed("license_refresh", d.License.Refresh))
		r.Method("POST", "/device/fingerprint",
			timed("device_fingerprint", d.License.Fingerprint))

		// Binding boundary.
		r.Method("GET", "/license/binding",
			timed("binding_lookup", d.Binding.Lookup))
		r.Method("POST", "/license/bind",
			d.RateLimit.ByIP("license_bind")(timed("license_bind", d.Binding.Bind)))
		r.Method("POST", "/session/logout",
			d.Auth.Viewer(timed("session_logout", d.Binding.Logout)))

		// Authorization boundary.
		r.Method("POST", "/playback/otp",
			d.RateLimit.ByEndpoint("playback_otp")(timed("playback_otp", d.Playback.IssueOTP)))
		r.Get("/playback/events", d.Events.ServeWS)

		// Admin surface.
		r.Method("POST", "/admin/login",
			d.RateLimit.ByIP("admin_login")(timed("admin_login", d.Admin.Login)))
		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Admin)
			r.Post("/admin/licenses", d.Admin.CreateLicense)
			r.Get("/admin/licenses", d.Admin.ListLicenses)
			r.Post("/admin/licenses/{id}/activate", d.Admin.Activate)
			r.Post("/admin/licenses/{id}/deactivate", d.Admin.Deactivate)
			r.Post("/admin/licenses/{id}/unbind", d.Admin.Unbind)
			r.Delete("/admin/licenses/{id}", d.Admin.DeleteLicense)
			r.Get("/admin/videos", d.Playback.VideoInfo)
		})
	})

	r.Method("GET", "/metrics", d.MetricsHandler)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
