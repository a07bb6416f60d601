package handler

import (
	"net/http"
	"time"

	"shopfloor/internal/format"
	"shopfloor/internal/model"
	"shopfloor/internal/mw"
	"shopfloor/internal/service"
)

type dashboardResponse struct {
	UserID          string            `json:"user_id"`
	Planned         model.CountFamily `json:"planned_orders"`
	Production      model.CountFamily `json:"production_orders"`
	LastUpdated     time.Time         `json:"last_updated"`
	LastUpdatedText string            `json:"last_updated_text"`
}

func DashboardHandler(dashSvc *service.DashboardService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ls, ok := mw.Session(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dash, err := dashSvc.Load(r.Context(), ls)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, dashboardResponse{
			UserID:          ls.UserID,
			Planned:         dash.Planned,
			Production:      dash.Production,
			LastUpdated:     dash.LastUpdated,
			LastUpdatedText: format.FormatTime(dash.LastUpdated, loc),
		})
	}
}
