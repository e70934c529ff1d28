package service

import (
	"sort"

	"campus-sis/internal/model"
)

// ── 考勤对账 ──────────────────────────────────────────────
//
// 以"该开课下 active 选课"为全集，对照场次考勤记录划分 已标记 /
// 未标记 两侧。不变式：
//
//	marked ∪ notMarked == activeEnrollments
//	marked ∩ notMarked == ∅
//
// 孤儿考勤（学生无 active 选课）不进入任何一侧。重复考勤按
// recorded_at 最新者生效——显式决策，不依赖遍历顺序。
//
// 对账视图是只读、用后即弃的快照：提交变更后总是重新取数重算，
// 从不原地打补丁。
// ─────────────────────────────────────────────────────────────

// MarkedEntry 已标记侧的一名学生及其生效考勤记录
type MarkedEntry struct {
	Enrollment model.Enrollment
	Record     model.AttendanceRecord
}

// ReconciliationSet 一个场次的对账划分
type ReconciliationSet struct {
	Marked    []MarkedEntry
	NotMarked []model.Enrollment
}

// BuildReconciliation 计算划分
//
// records 的遍历顺序无关紧要：重复记录逐条比较 recorded_at，留最新。
func BuildReconciliation(enrollments []model.Enrollment, records []model.AttendanceRecord) ReconciliationSet {
	enrolled := make(map[string]model.Enrollment, len(enrollments))
	for _, e := range enrollments {
		enrolled[e.StudentID] = e
	}

	// student_id → 生效记录；无 active 选课的记录视为孤儿，丢弃
	effective := make(map[string]model.AttendanceRecord)
	for _, rec := range records {
		if _, ok := enrolled[rec.StudentID]; !ok {
			continue
		}
		cur, seen := effective[rec.StudentID]
		if !seen || rec.RecordedAt.After(cur.RecordedAt) {
			effective[rec.StudentID] = rec
		}
	}

	set := ReconciliationSet{}
	for _, e := range enrollments {
		if rec, ok := effective[e.StudentID]; ok {
			set.Marked = append(set.Marked, MarkedEntry{Enrollment: e, Record: rec})
		} else {
			set.NotMarked = append(set.NotMarked, e)
		}
	}

	// 两侧按学号排序，输出稳定
	sort.Slice(set.Marked, func(i, j int) bool {
		return studentNo(set.Marked[i].Enrollment) < studentNo(set.Marked[j].Enrollment)
	})
	sort.Slice(set.NotMarked, func(i, j int) bool {
		return studentNo(set.NotMarked[i]) < studentNo(set.NotMarked[j])
	})
	return set
}

func studentNo(e model.Enrollment) string {
	if e.Student != nil {
		return e.Student.StudentNo
	}
	return e.StudentID
}

// QuickAddCandidates 未标记侧过滤掉已勾选的学生，保证同一学生不会
// 在一次批量补录中被排两次
func (s ReconciliationSet) QuickAddCandidates(selected map[string]struct{}) []model.Enrollment {
	var out []model.Enrollment
	for _, e := range s.NotMarked {
		if _, picked := selected[e.StudentID]; picked {
			continue
		}
		out = append(out, e)
	}
	return out
}
