package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/vedran77/veil/internal/transport/http/middleware"
)

type RouterDeps struct {
	Logger         *slog.Logger
	JWTSecret      string
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter

	Auth    *AuthHandler
	Masks   *MaskHandler
	Friends *FriendHandler
	DMs     *DMHandler
	Rooms   *RoomHandler
	Servers *ServerHandler
	Channel *ChannelHandler
	RTC     *RTCHandler
	// WS serves the realtime socket. It authenticates from the query string.
	WS http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.WS != nil {
		r.Method(http.MethodGet, "/ws", d.WS)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if d.RateLimiter != nil {
			api.Use(d.RateLimiter.Handler)
		}

		api.Post("/auth/register", d.Auth.Register)
		api.Post("/auth/login", d.Auth.Login)

		api.Group(func(p chi.Router) {
			p.Use(middleware.Auth(d.JWTSecret))

			p.Get("/auth/me", d.Auth.Me)

			p.Get("/masks", d.Masks.List)
			p.Post("/masks", d.Masks.Create)
			p.Patch("/masks/{id}", d.Masks.Update)
			p.Delete("/masks/{id}", d.Masks.Delete)
			p.Put("/masks/{id}/default", d.Masks.SetDefault)

			p.Get("/friends", d.Friends.List)
			p.Delete("/friends/{userID}", d.Friends.Remove)
			p.Post("/friends/requests", d.Friends.SendRequest)
			p.Get("/friends/requests", d.Friends.ListIncoming)
			p.Post("/friends/requests/{id}/accept", d.Friends.Accept)
			p.Post("/friends/requests/{id}/reject", d.Friends.Reject)
			p.Delete("/friends/requests/{id}", d.Friends.Cancel)

			p.Post("/dms", d.DMs.StartThread)
			p.Get("/dms", d.DMs.ListThreads)
			p.Get("/dms/{id}", d.DMs.State)
			p.Get("/dms/{id}/messages", d.DMs.ListMessages)

			p.Post("/rooms", d.Rooms.Create)
			p.Get("/rooms/{id}", d.Rooms.Get)
			p.Post("/rooms/{id}/mute", d.Rooms.Mute)
			p.Post("/rooms/{id}/exile", d.Rooms.Exile)
			p.Post("/rooms/{id}/lock", d.Rooms.SetLocked)

			p.Post("/servers", d.Servers.Create)
			p.Get("/servers", d.Servers.List)
			p.Get("/servers/{id}", d.Servers.Get)
			p.Patch("/servers/{id}/identity-mode", d.Servers.UpdateIdentityMode)
			p.Get("/servers/{id}/members", d.Servers.ListMembers)
			p.Put("/servers/{id}/members/me/mask", d.Servers.SetServerMask)
			p.Put("/servers/{id}/members/{userID}/roles", d.Servers.AssignRoles)
			p.Delete("/servers/{id}/members/{userID}", d.Servers.Kick)
			p.Get("/servers/{id}/roles", d.Servers.ListRoles)
			p.Post("/servers/{id}/roles", d.Servers.CreateRole)
			p.Post("/servers/{id}/invites", d.Servers.CreateInvite)
			p.Post("/invites/{code}/join", d.Servers.JoinByInvite)

			p.Get("/servers/{id}/channels", d.Channel.List)
			p.Post("/servers/{id}/channels", d.Channel.Create)
			p.Put("/channels/{id}/identity", d.Channel.SetIdentity)
			p.Get("/channels/{id}/messages", d.Channel.ListMessages)

			p.Post("/rtc/sessions", d.RTC.Connect)
			p.Post("/rtc/sessions/{id}/leave", d.RTC.Leave)
			p.Post("/rtc/sessions/{id}/mute", d.RTC.Mute)
			p.Post("/rtc/sessions/{id}/end", d.RTC.End)
		})
	})

	return r
}
