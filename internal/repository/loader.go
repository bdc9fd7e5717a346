// Package repository 提供数据访问层
package repository

import (
	"context"

	"github.com/medroster/medroster/pkg/model"
	"github.com/medroster/medroster/pkg/schedule"
)

// Loader 快照装载器
// 把各仓储的数据组装为引擎所需的不可变快照
type Loader struct {
	doctors          *DoctorRepository
	unavailabilities *UnavailabilityRepository
	rules            *RuleRepository
	overrides        *OverrideRepository
}

// NewLoader 创建快照装载器
func NewLoader(db DB) *Loader {
	return &Loader{
		doctors:          NewDoctorRepository(db),
		unavailabilities: NewUnavailabilityRepository(db),
		rules:            NewRuleRepository(db),
		overrides:        NewOverrideRepository(db),
	}
}

// Doctors 医生仓储
func (l *Loader) Doctors() *DoctorRepository { return l.doctors }

// Unavailabilities 不可用记录仓储
func (l *Loader) Unavailabilities() *UnavailabilityRepository { return l.unavailabilities }

// Rules 排班规则仓储
func (l *Loader) Rules() *RuleRepository { return l.rules }

// Overrides 覆盖仓储
func (l *Loader) Overrides() *OverrideRepository { return l.overrides }

// LoadSnapshot 装载指定日期范围的排班快照
func (l *Loader) LoadSnapshot(ctx context.Context, startDate, endDate string) (*schedule.Snapshot, error) {
	doctors, err := l.doctors.List(ctx, DefaultListFilter())
	if err != nil {
		return nil, err
	}
	unavailabilities, err := l.unavailabilities.ListForRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	slots, err := l.rules.ListTemplateSlots(ctx)
	if err != nil {
		return nil, err
	}
	rcps, err := l.rules.ListRCPDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	exceptions, err := l.rules.ListRCPExceptions(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	activities, err := l.rules.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	holidays, err := l.rules.ListHolidays(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	return schedule.NewSnapshot(doctors, unavailabilities, slots, rcps, exceptions, activities, holidays), nil
}

// LoadOverrides 装载指定日期范围的覆盖
func (l *Loader) LoadOverrides(ctx context.Context, startDate, endDate string) (model.OverrideMap, error) {
	return l.overrides.GetForRange(ctx, startDate, endDate)
}
