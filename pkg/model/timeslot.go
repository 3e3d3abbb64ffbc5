// Package model 定义排课引擎的核心数据模型
package model

import "fmt"

// TimeSlot 时间格（课表网格中的一格）
// 同一网格内以 (Day, Period) 唯一确定
type TimeSlot struct {
	Day       int    `json:"day"`        // 工作日索引，0 起
	Period    int    `json:"period"`     // 节次索引，0 起
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
}

// Equal 按 (Day, Period) 判等
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.Day == other.Day && s.Period == other.Period
}

// String 返回可读标识
func (s TimeSlot) String() string {
	return fmt.Sprintf("D%d-P%d", s.Day, s.Period)
}

// SlotGrid 课表网格：全部可用时间格的有序集合
// 课间休息的节次不进入网格
type SlotGrid struct {
	WorkingDays   int        `json:"working_days"`
	PeriodsPerDay int        `json:"periods_per_day"`
	Slots         []TimeSlot `json:"slots"`

	keyIndex map[int]int // slot key -> Slots 下标
}

// NewSlotGrid 构建课表网格
// breakPeriods 中的节次视为休息，不生成时间格
func NewSlotGrid(workingDays, periodsPerDay, periodMinutes int, dayStart string, breakPeriods []int) *SlotGrid {
	breaks := make(map[int]bool, len(breakPeriods))
	for _, p := range breakPeriods {
		breaks[p] = true
	}

	startHour, startMin := parseClock(dayStart)

	grid := &SlotGrid{
		WorkingDays:   workingDays,
		PeriodsPerDay: periodsPerDay,
		Slots:         make([]TimeSlot, 0, workingDays*periodsPerDay),
		keyIndex:      make(map[int]int),
	}

	for day := 0; day < workingDays; day++ {
		for period := 0; period < periodsPerDay; period++ {
			if breaks[period] {
				continue
			}
			offset := period * periodMinutes
			slot := TimeSlot{
				Day:       day,
				Period:    period,
				StartTime: formatClock(startHour, startMin, offset),
				EndTime:   formatClock(startHour, startMin, offset+periodMinutes),
			}
			grid.keyIndex[grid.Key(slot)] = len(grid.Slots)
			grid.Slots = append(grid.Slots, slot)
		}
	}

	return grid
}

// Key 返回时间格在网格内的唯一键
func (g *SlotGrid) Key(s TimeSlot) int {
	return s.Day*g.PeriodsPerDay + s.Period
}

// SlotByKey 按键查找时间格
func (g *SlotGrid) SlotByKey(key int) (TimeSlot, bool) {
	idx, ok := g.keyIndex[key]
	if !ok {
		return TimeSlot{}, false
	}
	return g.Slots[idx], true
}

// Contains 检查键是否属于网格
func (g *SlotGrid) Contains(key int) bool {
	_, ok := g.keyIndex[key]
	return ok
}

// Size 返回可用时间格数量
func (g *SlotGrid) Size() int {
	return len(g.Slots)
}

// DaySlots 返回某个工作日的全部时间格（按节次升序）
func (g *SlotGrid) DaySlots(day int) []TimeSlot {
	var slots []TimeSlot
	for _, s := range g.Slots {
		if s.Day == day {
			slots = append(slots, s)
		}
	}
	return slots
}

// parseClock 解析 HH:MM
func parseClock(clock string) (hour, minute int) {
	if _, err := fmt.Sscanf(clock, "%d:%d", &hour, &minute); err != nil {
		return 8, 0
	}
	return hour, minute
}

// formatClock 计算偏移后的 HH:MM
func formatClock(hour, minute, offsetMinutes int) string {
	total := hour*60 + minute + offsetMinutes
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
}
