// Package schedule 提供周模板与RCP规则到具体场次的解析，以及公平性自动填充
package schedule

import (
	"github.com/google/uuid"
	"github.com/medroster/medroster/pkg/model"
)

// Snapshot 排班快照
// 引擎的全部输入都以不可变快照传入，引擎在调用之间不持有任何状态
type Snapshot struct {
	Doctors          []*model.Doctor             `json:"doctors"`
	Unavailabilities []*model.Unavailability     `json:"unavailabilities"`
	TemplateSlots    []*model.TemplateSlot       `json:"template_slots"`
	RCPDefinitions   []*model.RCPDefinition      `json:"rcp_definitions"`
	RCPExceptions    []*model.RCPException       `json:"rcp_exceptions"`
	Activities       []*model.ActivityDefinition `json:"activities"`
	Holidays         model.HolidayCalendar       `json:"holidays"`

	// 索引缓存
	doctorMap    map[uuid.UUID]*model.Doctor
	activityMap  map[string]*model.ActivityDefinition
	exceptionMap map[string]*model.RCPException
}

// NewSnapshot 创建排班快照并构建索引
func NewSnapshot(
	doctors []*model.Doctor,
	unavailabilities []*model.Unavailability,
	slots []*model.TemplateSlot,
	rcps []*model.RCPDefinition,
	exceptions []*model.RCPException,
	activities []*model.ActivityDefinition,
	holidays model.HolidayCalendar,
) *Snapshot {
	s := &Snapshot{
		Doctors:          doctors,
		Unavailabilities: unavailabilities,
		TemplateSlots:    slots,
		RCPDefinitions:   rcps,
		RCPExceptions:    exceptions,
		Activities:       activities,
		Holidays:         holidays,
	}
	s.rebuildIndexes()
	return s
}

// rebuildIndexes 重建索引缓存
func (s *Snapshot) rebuildIndexes() {
	s.doctorMap = make(map[uuid.UUID]*model.Doctor, len(s.Doctors))
	for _, d := range s.Doctors {
		s.doctorMap[d.ID] = d
	}
	s.activityMap = make(map[string]*model.ActivityDefinition, len(s.Activities))
	for _, a := range s.Activities {
		s.activityMap[a.ID] = a
	}
	s.exceptionMap = make(map[string]*model.RCPException, len(s.RCPExceptions))
	for _, e := range s.RCPExceptions {
		s.exceptionMap[exceptionKey(e.RCPID, e.OriginalDate)] = e
	}
}

// GetDoctor 获取医生（不存在时返回nil）
func (s *Snapshot) GetDoctor(id uuid.UUID) *model.Doctor {
	return s.doctorMap[id]
}

// GetActivity 获取活动定义（不存在时返回nil）
func (s *Snapshot) GetActivity(id string) *model.ActivityDefinition {
	if id == "" {
		return nil
	}
	return s.activityMap[id]
}

// GetException 获取RCP例外（不存在时返回nil）
func (s *Snapshot) GetException(rcpID, originalDate string) *model.RCPException {
	return s.exceptionMap[exceptionKey(rcpID, originalDate)]
}

// exceptionKey 例外索引键
func exceptionKey(rcpID, originalDate string) string {
	return rcpID + "|" + originalDate
}
