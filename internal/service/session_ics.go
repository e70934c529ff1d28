package service

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ── ICS 场次解析器 ────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为具体日期的场次草稿，
// 用于开课的课表批量建档。
//
// 设计决策：
//   - 每个 VEVENT 展开为一个或多个具体日期的场次（SUMMARY → topic）
//   - FREQ=WEEKLY 的 RRULE 按 INTERVAL / COUNT / UNTIL 展开，EXDATE 剔除
//   - 非周重复规则保守处理：只取首次发生
//   - 展开上限一年，防御无界规则
// ─────────────────────────────────────────────────────────────

const (
	colomboTimezone  = "Asia/Colombo"
	icsExpandHorizon = 365 // 天
	icsMaxSessions   = 500
)

// SessionDraft ICS 解析出的场次草稿
type SessionDraft struct {
	SessionDate string // YYYY-MM-DD
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	Topic       string
}

// ParseSessionICS 解析 ICS 内容为场次草稿列表，按日期 + 开始时间排序
func ParseSessionICS(reader io.Reader) ([]SessionDraft, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	loc, err := time.LoadLocation(colomboTimezone)
	if err != nil {
		loc = time.UTC
	}

	var drafts []SessionDraft
	for _, evt := range cal.Events() {
		drafts = append(drafts, expandVEvent(evt, loc)...)
		if len(drafts) > icsMaxSessions {
			return nil, fmt.Errorf("ICS 事件展开超过 %d 个场次", icsMaxSessions)
		}
	}

	sort.Slice(drafts, func(i, j int) bool {
		if drafts[i].SessionDate != drafts[j].SessionDate {
			return drafts[i].SessionDate < drafts[j].SessionDate
		}
		return drafts[i].StartTime < drafts[j].StartTime
	})
	return drafts, nil
}

// expandVEvent 将单个 VEVENT 展开为具体日期的场次
func expandVEvent(evt *ics.VEvent, loc *time.Location) []SessionDraft {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	topic := ""
	if summary != nil {
		topic = strings.TrimSpace(summary.Value)
	}

	dtStart, err := evt.GetStartAt()
	if err != nil {
		return nil
	}
	dtStart = dtStart.In(loc)

	dtEnd, err := evt.GetEndAt()
	if err != nil {
		// 无 DTEND 默认两小时
		dtEnd = dtStart.Add(2 * time.Hour)
	}
	dtEnd = dtEnd.In(loc)

	startTime := dtStart.Format("15:04")
	endTime := dtEnd.Format("15:04")

	dates := expandOccurrences(evt, dtStart, loc)

	drafts := make([]SessionDraft, 0, len(dates))
	for _, d := range dates {
		drafts = append(drafts, SessionDraft{
			SessionDate: d.Format("2006-01-02"),
			StartTime:   startTime,
			EndTime:     endTime,
			Topic:       topic,
		})
	}
	return drafts
}

// expandOccurrences 按 RRULE 展开发生日期；无 RRULE 即单次事件
func expandOccurrences(evt *ics.VEvent, dtStart time.Time, loc *time.Location) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{dtStart}
	}

	rule := parseRRule(rruleProp.Value)
	if rule.freq != "WEEKLY" {
		// 非周重复保守处理：只取首次发生
		return []time.Time{dtStart}
	}

	exDates := parseExDates(evt, loc)
	interval := rule.interval
	if interval < 1 {
		interval = 1
	}

	horizon := dtStart.AddDate(0, 0, icsExpandHorizon)
	if !rule.until.IsZero() && rule.until.Before(horizon) {
		horizon = rule.until
	}

	var dates []time.Time
	current := dtStart
	count := 0
	for {
		if rule.count > 0 && count >= rule.count {
			break
		}
		if current.After(horizon) {
			break
		}
		if !exDates[current.Format("20060102")] {
			dates = append(dates, current)
		}
		count++
		current = current.AddDate(0, 0, 7*interval)
	}
	return dates
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE。
// RFC 5545 允许单个属性携带逗号分隔的多个日期。
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, raw := range strings.Split(prop.Value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			t, err := time.Parse("20060102T150405Z", raw)
			if err != nil {
				t, err = time.Parse("20060102T150405", raw)
				if err != nil {
					t, err = time.Parse("20060102", raw)
				}
			}
			if err == nil {
				exDates[t.In(loc).Format("20060102")] = true
			}
		}
	}
	return exDates
}
