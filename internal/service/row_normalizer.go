package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ── 行归一化 ──────────────────────────────────────────────
//
// 逐行类型矫正与格式校验，独立于列映射。行级错误只追加到该行的
// validationErrors，绝不中断后续行的归一化（归一化对输入是全量的）。
//
// 错误文案固定为 "Row {行号}: {消息}"；行号是源文件行号（表头 = 1，
// 首个数据行 = 2），便于操作员对照电子表格排查。
// ─────────────────────────────────────────────────────────────

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RawRow 源文件中的一行，归一化后即丢弃
type RawRow struct {
	SourceRowNumber int // 源文件行号，表头 = 1
	Cells           []string
}

// NormalizedRecord 归一化后的记录
//
// 创建后不可变，仅 validationErrors 允许追加。
type NormalizedRecord struct {
	SourceRowNumber  int
	Fields           map[string]string
	ValidationErrors []string
}

// IsValid 该行是否无任何校验错误
func (r *NormalizedRecord) IsValid() bool {
	return len(r.ValidationErrors) == 0
}

// addError 追加 "Row {n}: {message}" 样式错误
func (r *NormalizedRecord) addError(message string) {
	r.ValidationErrors = append(r.ValidationErrors, fmt.Sprintf("Row %d: %s", r.SourceRowNumber, message))
}

// NormalizeRow 按模式归一化一行
//
// 每个字段先做类型矫正，矫正后再查必填：空串视为缺失。
func NormalizeRow(raw RawRow, mapping map[string]int, schema *TargetSchema) *NormalizedRecord {
	rec := &NormalizedRecord{
		SourceRowNumber: raw.SourceRowNumber,
		Fields:          make(map[string]string, len(schema.Fields)),
	}

	for _, field := range schema.Fields {
		idx, mapped := mapping[field.Name]
		var cell string
		if mapped && idx < len(raw.Cells) {
			cell = raw.Cells[idx]
		}

		value, errMsg := coerceField(cell, field.Kind)
		if errMsg != "" {
			rec.addError(fmt.Sprintf("%s %s", field.Name, errMsg))
			continue
		}

		// 必填检查在矫正之后：trim 后为空即缺失
		if value == "" {
			if field.Required {
				rec.addError(fmt.Sprintf("%s is required", field.Name))
			}
			continue
		}

		rec.Fields[field.Name] = value
	}

	return rec
}

// coerceField 按字段类型矫正单元格；返回 (归一化值, 错误消息)
//
// 空单元格不报格式错，交由必填检查判定。
func coerceField(cell string, kind FieldKind) (string, string) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return "", ""
	}

	switch kind {
	case KindEmail:
		// 校验用原样大小写，写入时统一小写
		if !emailPattern.MatchString(trimmed) {
			return "", "has invalid format"
		}
		return strings.ToLower(trimmed), ""

	case KindPhone:
		return normalizePhone(trimmed)

	case KindDate:
		return normalizeDate(trimmed)

	default:
		return trimmed, ""
	}
}

// normalizePhone 电话归一化：去全部空白后接受
//   - 0 + 9 位数字（本地形式，原样保留）
//   - +94 / 94 + 9 位数字（国际形式，还原为本地形式 0XXXXXXXXX）
func normalizePhone(v string) (string, string) {
	compact := strings.Join(strings.Fields(v), "")
	compact = strings.ReplaceAll(compact, "-", "")

	digits := strings.TrimPrefix(compact, "+")
	switch {
	case strings.HasPrefix(digits, "94") && len(digits) == 11 && allDigits(digits):
		return "0" + digits[2:], ""
	case strings.HasPrefix(compact, "0") && len(compact) == 10 && allDigits(compact):
		return compact, ""
	default:
		return "", "has invalid format"
	}
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// 电子表格纪元偏移：序列值减去 25569 即 1970-01-01 起的天数
// （1899-12-30 基准，含历史闰年 bug 的一天修正）。该常量与既有
// 导出模板逐位兼容，不得改动。
const spreadsheetEpochOffset = 25569

// 宽松文本日期格式，按序尝试
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// normalizeDate 日期归一化为 YYYY-MM-DD
//
// 两种来源：电子表格数字日期序列，或宽松文本日期。解析失败记行错误，
// 绝不静默取默认值。
func normalizeDate(v string) (string, string) {
	// 数字序列：serial − 25569 天，自 1970-01-01 (UTC) 起算
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		days := int(serial) - spreadsheetEpochOffset
		d := time.Unix(0, 0).UTC().AddDate(0, 0, days)
		return d.Format("2006-01-02"), ""
	}

	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d.Format("2006-01-02"), ""
		}
	}
	return "", "has invalid date"
}
