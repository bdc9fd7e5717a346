// Package repository 提供数据访问层
package repository

import (
	"context"
	"fmt"

	"github.com/medroster/medroster/pkg/model"
)

// OverrideRepository 场次覆盖仓储
// 覆盖以编码后的场次标识为键，标识中的日期是原始日期，
// 因此可以直接按日期前后缀做范围查询
type OverrideRepository struct {
	db DB
}

// NewOverrideRepository 创建覆盖仓储
func NewOverrideRepository(db DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Set 写入或更新覆盖
func (r *OverrideRepository) Set(ctx context.Context, occurrenceID string, ov model.Override) error {
	if _, err := model.ParseOccurrenceID(occurrenceID); err != nil {
		return err
	}

	if ov.Kind == model.OverrideUnset {
		return r.Unset(ctx, occurrenceID)
	}

	query := `
		INSERT INTO occurrence_overrides (occurrence_id, kind, doctor_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (occurrence_id) DO UPDATE SET kind = $2, doctor_id = $3
	`
	_, err := r.db.ExecContext(ctx, query, occurrenceID, ov.Kind, ov.DoctorID)
	if err != nil {
		return fmt.Errorf("保存覆盖失败: %w", err)
	}
	return nil
}

// Unset 删除覆盖，场次回到引擎决定的状态
func (r *OverrideRepository) Unset(ctx context.Context, occurrenceID string) error {
	query := `DELETE FROM occurrence_overrides WHERE occurrence_id = $1`
	if _, err := r.db.ExecContext(ctx, query, occurrenceID); err != nil {
		return fmt.Errorf("删除覆盖失败: %w", err)
	}
	return nil
}

// GetForRange 获取原日期落在范围内的全部覆盖
func (r *OverrideRepository) GetForRange(ctx context.Context, startDate, endDate string) (model.OverrideMap, error) {
	query := `
		SELECT occurrence_id, kind, doctor_id
		FROM occurrence_overrides
		WHERE right(occurrence_id, 10) >= $1 AND right(occurrence_id, 10) <= $2
	`
	rows, err := r.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询覆盖失败: %w", err)
	}
	defer rows.Close()

	overrides := make(model.OverrideMap)
	for rows.Next() {
		var occurrenceID string
		var ov model.Override
		if err := rows.Scan(&occurrenceID, &ov.Kind, &ov.DoctorID); err != nil {
			return nil, fmt.Errorf("扫描覆盖失败: %w", err)
		}
		overrides[occurrenceID] = ov
	}
	return overrides, rows.Err()
}

// GetAll 获取全部覆盖（回放用）
func (r *OverrideRepository) GetAll(ctx context.Context) (model.OverrideMap, error) {
	query := `SELECT occurrence_id, kind, doctor_id FROM occurrence_overrides`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询覆盖失败: %w", err)
	}
	defer rows.Close()

	overrides := make(model.OverrideMap)
	for rows.Next() {
		var occurrenceID string
		var ov model.Override
		if err := rows.Scan(&occurrenceID, &ov.Kind, &ov.DoctorID); err != nil {
			return nil, fmt.Errorf("扫描覆盖失败: %w", err)
		}
		overrides[occurrenceID] = ov
	}
	return overrides, rows.Err()
}
