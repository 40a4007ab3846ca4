package handlers

import (
	"context"
	"net/http"
	"time"

	"freelance-hub/backend/middleware"
	"freelance-hub/backend/models"
	"freelance-hub/backend/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 組裝路由所需的服務；Rooms、Live、ActivityLimiter、Ready 可以省略
type Deps struct {
	Meetings     MeetingService
	Teams        TeamService
	Applications ApplicationService
	Rooms        RoomTokenIssuer
	Verifier     utils.TokenVerifier

	Live            http.HandlerFunc
	ActivityLimiter func(http.Handler) http.Handler
	Ready           func(ctx context.Context) error
}

func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)

	// 健康檢查路由
	router.HandleFunc("/health", health(d.Ready)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	auth := middleware.JWTMiddleware(d.Verifier)
	freelancer := middleware.RequireRole(models.RoleFreelancer)

	// 會議紀錄：由視訊前端直接呼叫，不需要登入
	mh := NewMeetingHandler(d.Meetings, d.Rooms)
	var record http.Handler = http.HandlerFunc(mh.RecordActivity)
	if d.ActivityLimiter != nil {
		record = d.ActivityLimiter(record)
	}
	router.Handle("/meetings", record).Methods("POST")
	router.HandleFunc("/meetings", mh.GetHistory).Methods("GET")
	router.Handle("/meetings/rooms/{roomId}/token", auth(http.HandlerFunc(mh.IssueRoomToken))).Methods("POST")
	if d.Live != nil {
		router.HandleFunc("/meetings/{meetingId}/live", d.Live).Methods("GET")
	}
	router.HandleFunc("/meetings/{meetingId}", mh.GetDetails).Methods("GET")
	router.HandleFunc("/meetings/{meetingId}/title", mh.UpdateTitle).Methods("PATCH")

	// 團隊：僅限 freelancer
	th := NewTeamHandler(d.Teams)
	ah := NewApplicationHandler(d.Applications)

	teams := router.PathPrefix("/teams").Subrouter()
	teams.Use(auth, freelancer)
	teams.HandleFunc("", th.CreateTeam).Methods("POST")
	teams.HandleFunc("", th.ListTeams).Methods("GET")
	teams.HandleFunc("/invitations", th.ListInvitations).Methods("GET")
	teams.HandleFunc("/{teamId}", th.GetTeam).Methods("GET")
	teams.HandleFunc("/{teamId}", th.UpdateTeam).Methods("PUT")
	teams.HandleFunc("/{teamId}", th.DeleteTeam).Methods("DELETE")
	teams.HandleFunc("/{teamId}/invite/{freelancerId}", th.InviteMember).Methods("POST")
	teams.HandleFunc("/{teamId}/invitations/{freelancerId}", th.RevokeInvitation).Methods("DELETE")
	teams.HandleFunc("/{teamId}/accept-invitation", th.AcceptInvitation).Methods("POST")
	teams.HandleFunc("/{teamId}/reject-invitation", th.RejectInvitation).Methods("POST")
	teams.HandleFunc("/{teamId}/leave", th.LeaveTeam).Methods("POST")
	teams.HandleFunc("/{teamId}/remove/{memberId}", th.RemoveMember).Methods("POST")
	teams.HandleFunc("/{teamId}/members/{memberId}/role", th.UpdateMemberRole).Methods("PUT")
	teams.HandleFunc("/{teamId}/applications", ah.Submit).Methods("POST")

	applications := router.PathPrefix("/team-applications").Subrouter()
	applications.Use(auth, freelancer)
	applications.HandleFunc("", ah.List).Methods("GET")
	applications.HandleFunc("/{id}", ah.Withdraw).Methods("DELETE")

	return router
}

func health(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
