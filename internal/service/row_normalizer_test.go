package service

import (
	"fmt"
	"strings"
	"testing"
)

// studentMapping 按模板列序构造学生导入映射
func studentMapping() map[string]int {
	return map[string]int{
		"student_no": 0, "full_name": 1, "email": 2,
		"phone": 3, "date_of_birth": 4, "address": 5,
	}
}

// ────────────────────── NormalizeRow ──────────────────────

func TestNormalizeRow_ValidRow(t *testing.T) {
	schema := StudentImportSchema()
	raw := RawRow{
		SourceRowNumber: 2,
		Cells:           []string{"2021CS001", "Kamal Perera", "Kamal.Perera@Example.com", "+94 71 234 5678", "2000-05-20", "12 Galle Rd, Colombo"},
	}

	rec := NormalizeRow(raw, studentMapping(), schema)
	if !rec.IsValid() {
		t.Fatalf("期望该行有效，实际错误: %v", rec.ValidationErrors)
	}
	if rec.Fields["email"] != "kamal.perera@example.com" {
		t.Errorf("邮箱应统一小写，实际 %q", rec.Fields["email"])
	}
	if rec.Fields["phone"] != "0712345678" {
		t.Errorf("期望电话归一为 0712345678，实际 %q", rec.Fields["phone"])
	}
	if rec.Fields["date_of_birth"] != "2000-05-20" {
		t.Errorf("期望出生日期 2000-05-20，实际 %q", rec.Fields["date_of_birth"])
	}
}

func TestNormalizeRow_ShortRow(t *testing.T) {
	schema := StudentImportSchema()
	// 行尾单元格缺失（电子表格常见）：按空值处理，不越界
	raw := RawRow{SourceRowNumber: 5, Cells: []string{"2021CS002", "Nimal Silva", "nimal@uni.lk"}}

	rec := NormalizeRow(raw, studentMapping(), schema)
	if !rec.IsValid() {
		t.Fatalf("可选列缺失不应报错: %v", rec.ValidationErrors)
	}
	if _, ok := rec.Fields["phone"]; ok {
		t.Error("缺失单元格不应产生 phone 字段")
	}
}

func TestNormalizeRow_MissingRequired(t *testing.T) {
	schema := StudentImportSchema()
	raw := RawRow{SourceRowNumber: 8, Cells: []string{"   ", "Nimal Silva", "nimal@uni.lk"}}

	rec := NormalizeRow(raw, studentMapping(), schema)
	if rec.IsValid() {
		t.Fatal("学号缺失应判为无效行")
	}
	want := "Row 8: student_no is required"
	if len(rec.ValidationErrors) != 1 || rec.ValidationErrors[0] != want {
		t.Errorf("期望错误 %q，实际 %v", want, rec.ValidationErrors)
	}
}

func TestNormalizeRow_InvalidEmail(t *testing.T) {
	schema := StudentImportSchema()
	raw := RawRow{SourceRowNumber: 4, Cells: []string{"2021CS003", "Sunil", "not-an-email"}}

	rec := NormalizeRow(raw, studentMapping(), schema)
	if rec.IsValid() {
		t.Fatal("非法邮箱应判为无效行")
	}
	want := "Row 4: email has invalid format"
	if rec.ValidationErrors[0] != want {
		t.Errorf("期望错误 %q，实际 %q", want, rec.ValidationErrors[0])
	}
}

// 两处出错的多行场景：错误只落在对应行，且行号对照源文件
func TestNormalizeRow_ErrorsKeepSourceRowNumbers(t *testing.T) {
	schema := StudentImportSchema()
	var records []*NormalizedRecord
	for i := 0; i < 12; i++ {
		rowNum := i + 2 // 表头占第 1 行
		cells := []string{fmt.Sprintf("2021CS%03d", i), fmt.Sprintf("Student %d", i), fmt.Sprintf("s%d@uni.lk", i)}
		switch rowNum {
		case 4:
			cells[2] = "broken@" // 非法邮箱
		case 8:
			cells[0] = "" // 缺学号
		}
		records = append(records, NormalizeRow(RawRow{SourceRowNumber: rowNum, Cells: cells}, studentMapping(), schema))
	}

	report := ValidateRecords(records)
	if len(report.Errors) != 2 {
		t.Fatalf("期望恰好 2 条错误，实际 %d: %v", len(report.Errors), report.Errors)
	}
	if !strings.HasPrefix(report.Errors[0], "Row 4:") {
		t.Errorf("首条错误应指向 Row 4，实际 %q", report.Errors[0])
	}
	if !strings.HasPrefix(report.Errors[1], "Row 8:") {
		t.Errorf("次条错误应指向 Row 8，实际 %q", report.Errors[1])
	}
}

// ────────────────────── 电话归一化 ──────────────────────

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0712345678", "0712345678", false},
		{"071 234 5678", "0712345678", false},
		{"071-234-5678", "0712345678", false},
		{"+94712345678", "0712345678", false},
		{"94712345678", "0712345678", false},
		{"+94 71 234 5678", "0712345678", false},
		{"12345", "", true},        // 位数不足
		{"07123456789", "", true},  // 本地形式多一位
		{"071234567a", "", true},   // 混入字母
		{"+1 202 555 0100", "", true}, // 非本地国别码
	}
	for _, tc := range cases {
		got, errMsg := normalizePhone(tc.in)
		if tc.wantErr {
			if errMsg == "" {
				t.Errorf("normalizePhone(%q) 期望报错，实际得到 %q", tc.in, got)
			}
			continue
		}
		if errMsg != "" {
			t.Errorf("normalizePhone(%q) 报错: %s", tc.in, errMsg)
			continue
		}
		if got != tc.want {
			t.Errorf("normalizePhone(%q) = %q，期望 %q", tc.in, got, tc.want)
		}
	}
}

// ────────────────────── 日期归一化 ──────────────────────

func TestNormalizeDate_SpreadsheetSerial(t *testing.T) {
	// 序列值换算锚点，不得漂移
	got, errMsg := normalizeDate("45000")
	if errMsg != "" {
		t.Fatalf("序列 45000 解析报错: %s", errMsg)
	}
	if got != "2023-03-15" {
		t.Errorf("序列 45000 期望 2023-03-15，实际 %q", got)
	}

	// 1970-01-01 自身
	got, _ = normalizeDate("25569")
	if got != "1970-01-01" {
		t.Errorf("序列 25569 期望 1970-01-01，实际 %q", got)
	}
}

func TestNormalizeDate_TextFormats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2023-03-15", "2023-03-15"}, // 已是目标格式，换算后逐字相同
		{"2023/03/15", "2023-03-15"},
		{"15/03/2023", "2023-03-15"},
		{"15-03-2023", "2023-03-15"},
		{"15 Mar 2023", "2023-03-15"},
		{"Mar 15, 2023", "2023-03-15"},
		{"March 15, 2023", "2023-03-15"},
	}
	for _, tc := range cases {
		got, errMsg := normalizeDate(tc.in)
		if errMsg != "" {
			t.Errorf("normalizeDate(%q) 报错: %s", tc.in, errMsg)
			continue
		}
		if got != tc.want {
			t.Errorf("normalizeDate(%q) = %q，期望 %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, in := range []string{"not a date", "2023-13-45", "32/13/2023"} {
		if _, errMsg := normalizeDate(in); errMsg == "" {
			t.Errorf("normalizeDate(%q) 期望报错，实际通过", in)
		}
	}
}
