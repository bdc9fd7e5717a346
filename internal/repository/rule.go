// Package repository 提供数据访问层
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medroster/medroster/pkg/model"
)

// RuleRepository 排班规则仓储
// 覆盖周模板槽位、RCP定义、RCP例外、活动定义和节假日日历
type RuleRepository struct {
	db DB
}

// NewRuleRepository 创建排班规则仓储
func NewRuleRepository(db DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListTemplateSlots 列出全部周模板槽位
func (r *RuleRepository) ListTemplateSlots(ctx context.Context) ([]*model.TemplateSlot, error) {
	query := `
		SELECT id, weekday, period, location, slot_type, activity_id,
			default_doctor_id, secondary_doctor_ids, recurrence
		FROM template_slots
		ORDER BY weekday, period, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询模板槽位失败: %w", err)
	}
	defer rows.Close()

	var slots []*model.TemplateSlot
	for rows.Next() {
		var slot model.TemplateSlot
		var secondaryJSON, recurrenceJSON []byte
		if err := rows.Scan(
			&slot.ID, &slot.Weekday, &slot.Period, &slot.Location, &slot.SlotType,
			&slot.ActivityID, &slot.DefaultDoctorID, &secondaryJSON, &recurrenceJSON,
		); err != nil {
			return nil, fmt.Errorf("扫描模板槽位失败: %w", err)
		}
		json.Unmarshal(secondaryJSON, &slot.SecondaryDoctorIDs)
		if len(recurrenceJSON) > 0 {
			var rec model.Recurrence
			if json.Unmarshal(recurrenceJSON, &rec) == nil && rec.Kind != "" {
				slot.Recurrence = &rec
			}
		}
		slots = append(slots, &slot)
	}
	return slots, rows.Err()
}

// SaveTemplateSlot 写入或更新模板槽位
func (r *RuleRepository) SaveTemplateSlot(ctx context.Context, slot *model.TemplateSlot) error {
	secondaryJSON, _ := json.Marshal(slot.SecondaryDoctorIDs)
	var recurrenceJSON []byte
	if slot.Recurrence != nil {
		recurrenceJSON, _ = json.Marshal(slot.Recurrence)
	}

	query := `
		INSERT INTO template_slots (
			id, weekday, period, location, slot_type, activity_id,
			default_doctor_id, secondary_doctor_ids, recurrence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			weekday = $2, period = $3, location = $4, slot_type = $5,
			activity_id = $6, default_doctor_id = $7,
			secondary_doctor_ids = $8, recurrence = $9
	`
	_, err := r.db.ExecContext(ctx, query,
		slot.ID, slot.Weekday, slot.Period, slot.Location, slot.SlotType,
		slot.ActivityID, slot.DefaultDoctorID, secondaryJSON, recurrenceJSON,
	)
	if err != nil {
		return fmt.Errorf("保存模板槽位失败: %w", err)
	}
	return nil
}

// ListRCPDefinitions 列出全部RCP定义
func (r *RuleRepository) ListRCPDefinitions(ctx context.Context) ([]*model.RCPDefinition, error) {
	query := `
		SELECT id, name, weekday, period, location, participant_ids, recurrence
		FROM rcp_definitions
		ORDER BY weekday, period, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询RCP定义失败: %w", err)
	}
	defer rows.Close()

	var rcps []*model.RCPDefinition
	for rows.Next() {
		var rcp model.RCPDefinition
		var participantsJSON, recurrenceJSON []byte
		if err := rows.Scan(
			&rcp.ID, &rcp.Name, &rcp.Weekday, &rcp.Period, &rcp.Location,
			&participantsJSON, &recurrenceJSON,
		); err != nil {
			return nil, fmt.Errorf("扫描RCP定义失败: %w", err)
		}
		json.Unmarshal(participantsJSON, &rcp.ParticipantIDs)
		json.Unmarshal(recurrenceJSON, &rcp.Recurrence)
		rcps = append(rcps, &rcp)
	}
	return rcps, rows.Err()
}

// ListRCPExceptions 列出与日期范围相关的RCP例外
func (r *RuleRepository) ListRCPExceptions(ctx context.Context, startDate, endDate string) ([]*model.RCPException, error) {
	query := `
		SELECT rcp_id, original_date, cancelled, new_date, new_period, participant_ids
		FROM rcp_exceptions
		WHERE original_date >= $1 AND original_date <= $2
		ORDER BY original_date, rcp_id
	`
	rows, err := r.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询RCP例外失败: %w", err)
	}
	defer rows.Close()

	var exceptions []*model.RCPException
	for rows.Next() {
		var exc model.RCPException
		var participantsJSON []byte
		if err := rows.Scan(
			&exc.RCPID, &exc.OriginalDate, &exc.Cancelled,
			&exc.NewDate, &exc.NewPeriod, &participantsJSON,
		); err != nil {
			return nil, fmt.Errorf("扫描RCP例外失败: %w", err)
		}
		// NULL与显式列表语义不同：NULL保留默认参与者
		if len(participantsJSON) > 0 {
			json.Unmarshal(participantsJSON, &exc.ParticipantIDs)
		}
		exceptions = append(exceptions, &exc)
	}
	return exceptions, rows.Err()
}

// SaveRCPException 写入或更新RCP例外（以规则+原日期为键）
func (r *RuleRepository) SaveRCPException(ctx context.Context, exc *model.RCPException) error {
	var participantsJSON []byte
	if exc.ParticipantIDs != nil {
		participantsJSON, _ = json.Marshal(exc.ParticipantIDs)
	}

	query := `
		INSERT INTO rcp_exceptions (
			rcp_id, original_date, cancelled, new_date, new_period, participant_ids
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (rcp_id, original_date) DO UPDATE SET
			cancelled = $3, new_date = $4, new_period = $5, participant_ids = $6
	`
	_, err := r.db.ExecContext(ctx, query,
		exc.RCPID, exc.OriginalDate, exc.Cancelled, exc.NewDate, exc.NewPeriod, participantsJSON,
	)
	if err != nil {
		return fmt.Errorf("保存RCP例外失败: %w", err)
	}
	return nil
}

// ListActivities 列出全部活动定义
func (r *RuleRepository) ListActivities(ctx context.Context) ([]*model.ActivityDefinition, error) {
	query := `
		SELECT id, name, granularity, allow_double_booking, equity_group
		FROM activities
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询活动定义失败: %w", err)
	}
	defer rows.Close()

	var activities []*model.ActivityDefinition
	for rows.Next() {
		var a model.ActivityDefinition
		if err := rows.Scan(&a.ID, &a.Name, &a.Granularity, &a.AllowDoubleBooking, &a.EquityGroup); err != nil {
			return nil, fmt.Errorf("扫描活动定义失败: %w", err)
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

// ListHolidays 列出日期范围内的节假日
func (r *RuleRepository) ListHolidays(ctx context.Context, startDate, endDate string) (model.HolidayCalendar, error) {
	query := `
		SELECT date, name FROM holidays
		WHERE date >= $1 AND date <= $2
	`
	rows, err := r.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询节假日失败: %w", err)
	}
	defer rows.Close()

	calendar := make(model.HolidayCalendar)
	for rows.Next() {
		var date, name string
		if err := rows.Scan(&date, &name); err != nil {
			return nil, fmt.Errorf("扫描节假日失败: %w", err)
		}
		calendar[date] = name
	}
	return calendar, rows.Err()
}
