package service

// ── 导入校验聚合 ──────────────────────────────────────────
//
// 把逐行错误聚合成批次级报告。批次可用 (AllValid) 当且仅当零行出错：
// 部分有效的批次从不部分提交，操作员修文件重新导入。
//
// 展示截断（前 10 条）只发生在 DTO 层；这里永远计算完整错误集，
// 截断不可能掩盖"静默通过"。
// ─────────────────────────────────────────────────────────────

// ValidationReport 批次校验结果
type ValidationReport struct {
	Errors   []string // 完整错误集，按行序
	AllValid bool
}

// ValidateRecords 聚合所有记录的校验错误
func ValidateRecords(records []*NormalizedRecord) ValidationReport {
	var errs []string
	for _, rec := range records {
		errs = append(errs, rec.ValidationErrors...)
	}
	return ValidationReport{
		Errors:   errs,
		AllValid: len(errs) == 0,
	}
}

// CapErrors 截断错误列表用于展示；完整集合由调用方另行保留
func CapErrors(errs []string, cap int) []string {
	if len(errs) <= cap {
		return errs
	}
	return errs[:cap]
}
