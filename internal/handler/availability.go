// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/availability"
	"github.com/medroster/medroster/pkg/errors"
	"github.com/medroster/medroster/pkg/model"
)

// FilterRequest 可用医生过滤请求
type FilterRequest struct {
	Date                string `json:"date"` // YYYY-MM-DD
	Period              string `json:"period"`
	SlotType            string `json:"slot_type,omitempty"`
	ActivityID          string `json:"activity_id,omitempty"`
	ExcludeOccurrenceID string `json:"exclude_occurrence_id,omitempty"`
	ReplacedDoctorID    string `json:"replaced_doctor_id,omitempty"`
}

// FilterResponse 可用医生过滤响应
type FilterResponse struct {
	Date    string          `json:"date"`
	Period  model.Period    `json:"period"`
	Doctors []*model.Doctor `json:"doctors"`
}

// Filter 返回指定日期/时段可排班的医生
// 候选池与自动填充共用同一套过滤规则，保证两条路径结果一致
func (h *ScheduleHandler) Filter(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req FilterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		respondError(w, errors.InvalidInput("date", "日期格式应为YYYY-MM-DD"))
		return
	}
	period := model.Period(req.Period)
	if period != model.PeriodMorning && period != model.PeriodAfternoon {
		respondError(w, errors.InvalidInput("period", "应为 morning 或 afternoon"))
		return
	}

	// 占用判定需要当周已解析的场次
	weekStart := model.MondayOf(date)
	occurrences, snap, appErr := h.resolveWeek(r.Context(), weekStart, false)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	filterReq := availability.Request{
		Date:                req.Date,
		Weekday:             date.Weekday(),
		Period:              period,
		SlotType:            req.SlotType,
		ActivityID:          req.ActivityID,
		ExcludeOccurrenceID: req.ExcludeOccurrenceID,
	}

	var eligible []*model.Doctor
	if req.ReplacedDoctorID != "" {
		replaced, parseErr := uuid.Parse(req.ReplacedDoctorID)
		if parseErr != nil {
			respondError(w, errors.InvalidInput("replaced_doctor_id", "应为UUID"))
			return
		}
		eligible = availability.FilterForReplacement(filterReq, replaced, snap.Doctors, snap.Unavailabilities, occurrences)
	} else {
		eligible = availability.Filter(filterReq, snap.Doctors, snap.Unavailabilities, occurrences)
	}

	respondJSON(w, http.StatusOK, FilterResponse{
		Date:    req.Date,
		Period:  period,
		Doctors: eligible,
	})
}
