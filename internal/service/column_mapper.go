package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ── 列映射器 ──────────────────────────────────────────────
//
// 职责：将人工填写的、命名随意的表头映射到固定目标字段。
//
// 设计决策：
//   - 同义词表声明式配置（每种导入一份 TargetSchema），匹配函数保持纯函数
//   - 匹配用"包含"而非全等：表头是人手写的短文本（"Student ID Number"
//     应命中 student_no），全等匹配对非技术录入人员过于苛刻
//   - 每个表头最多映射一个字段，先到先得；同一字段命中多个表头时
//     保留第一个
//   - 扫描结束后仍缺必填字段 → MissingColumnsError，直接终止，
//     不做任何行级处理
// ─────────────────────────────────────────────────────────────

// FieldKind 字段类型，决定 RowNormalizer 的归一化规则
type FieldKind string

const (
	KindText  FieldKind = "text"
	KindEmail FieldKind = "email"
	KindPhone FieldKind = "phone"
	KindDate  FieldKind = "date"
)

// SchemaField 目标字段定义
type SchemaField struct {
	Name     string    // 目标字段名（写入 NormalizedRecord 的键）
	Label    string    // 模板 CSV 中的表头文案
	Kind     FieldKind
	Required bool
	Synonyms []string // 归一化后的同义词片段，命中任意一个即匹配
}

// TargetSchema 一种导入类型的完整目标模式，不可变配置
type TargetSchema struct {
	Kind   string // students | attendance
	Fields []SchemaField
}

// MissingColumnsError 必填列未映射
type MissingColumnsError struct {
	Fields []string
}

// Error 文案直接进操作员可见的错误列表，与行级错误同语种
func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Fields, ", "))
}

// normalizeHeader 表头归一化：NFKC 折叠 + 小写 + 去全部空白
func normalizeHeader(h string) string {
	h = norm.NFKC.String(h)
	h = strings.ToLower(h)
	return strings.Join(strings.Fields(h), "")
}

// MapColumns 将表头行映射为 目标字段名 → 列索引
//
// 返回的映射只含解析成功的字段；可选字段缺失不报错。
func MapColumns(header []string, schema *TargetSchema) (map[string]int, error) {
	mapping := make(map[string]int, len(schema.Fields))
	claimed := make([]bool, len(header))

	for i, raw := range header {
		h := normalizeHeader(raw)
		if h == "" {
			continue
		}
		for _, field := range schema.Fields {
			if _, done := mapping[field.Name]; done {
				continue
			}
			if !claimed[i] && headerMatches(h, field.Synonyms) {
				mapping[field.Name] = i
				claimed[i] = true
				break // 一个表头最多归一个字段
			}
		}
	}

	var missing []string
	for _, field := range schema.Fields {
		if !field.Required {
			continue
		}
		if _, ok := mapping[field.Name]; !ok {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Fields: missing}
	}

	return mapping, nil
}

func headerMatches(normalized string, synonyms []string) bool {
	for _, syn := range synonyms {
		if strings.Contains(normalized, syn) {
			return true
		}
	}
	return false
}

// ── 内置模式 ──

// StudentImportSchema 学生导入目标模式
func StudentImportSchema() *TargetSchema {
	return &TargetSchema{
		Kind: "students",
		Fields: []SchemaField{
			// 注意不能用裸 "student" 作同义词：会把 "Student Name" 抢注到学号列
			{Name: "student_no", Label: "Student No", Kind: KindText, Required: true,
				Synonyms: []string{"studentno", "studentid", "regno", "registration", "indexno"}},
			{Name: "full_name", Label: "Full Name", Kind: KindText, Required: true,
				Synonyms: []string{"fullname", "name"}},
			{Name: "email", Label: "Email", Kind: KindEmail, Required: true,
				Synonyms: []string{"email", "mail"}},
			{Name: "phone", Label: "Phone", Kind: KindPhone, Required: false,
				Synonyms: []string{"phone", "mobile", "contact", "tel"}},
			{Name: "date_of_birth", Label: "Date of Birth", Kind: KindDate, Required: false,
				Synonyms: []string{"dateofbirth", "birthdate", "birthday", "dob"}},
			{Name: "address", Label: "Address", Kind: KindText, Required: false,
				Synonyms: []string{"address"}},
		},
	}
}

// AttendanceImportSchema 考勤导入目标模式
func AttendanceImportSchema() *TargetSchema {
	return &TargetSchema{
		Kind: "attendance",
		Fields: []SchemaField{
			{Name: "student_no", Label: "Student No", Kind: KindText, Required: true,
				Synonyms: []string{"studentno", "studentid", "regno", "registration", "indexno"}},
			{Name: "status", Label: "Status", Kind: KindText, Required: true,
				Synonyms: []string{"status", "attendance", "presence"}},
		},
	}
}
