// Package forms declares the governed form types of the ResSync platform.
// The legacy front end reimplemented the audit reconciler once per form,
// differing only in these tables; here each form is one FormSpec fed to the
// shared engine.
package forms

import "ressync-audit-service/internal/audit"

// Governed form type identifiers, used as URL resource segments.
const (
	Enrollment   = "enrollment"
	Discharge    = "discharge"
	FollowUp     = "followup"
	Microbiology = "microbiology"
)

var yesNo = map[string]string{
	"Yes": "Có",
	"No":  "Không",
}

var patientStatus = map[string]string{
	"Alive":    "Còn sống",
	"Deceased": "Đã tử vong",
	"Unknown":  "Không rõ",
}

// Catalog returns the spec of every governed form, keyed by form type.
func Catalog() map[string]*audit.FormSpec {
	specs := []*audit.FormSpec{
		enrollmentSpec(),
		dischargeSpec(),
		followUpSpec(),
		microbiologySpec(),
	}
	catalog := make(map[string]*audit.FormSpec, len(specs))
	for _, spec := range specs {
		catalog[spec.FormType] = spec
	}
	return catalog
}

// Lookup returns the spec for one form type.
func Lookup(formType string) (*audit.FormSpec, bool) {
	spec, ok := Catalog()[formType]
	return spec, ok
}

func enrollmentSpec() *audit.FormSpec {
	return audit.NewFormSpec(Enrollment).
		Field("PATIENT_NAME", "Họ và tên", audit.FieldText).
		Field("DOB", "Ngày sinh", audit.FieldDate).
		EnumField("SEX", "Giới tính", audit.FieldRadio, map[string]string{
			"M": "Nam",
			"F": "Nữ",
		}).
		Field("ADMISSION_DATE", "Ngày nhập viện", audit.FieldDate).
		EnumField("TRANSFERRED", "Chuyển viện", audit.FieldCheckbox, yesNo).
		Field("DIAGNOSIS", "Chẩn đoán", audit.FieldTextarea).
		Field("CODE", "Mã ICD", audit.FieldText).
		Field("DESCRIPTION", "Mô tả", audit.FieldText).
		Formset("icd_codes", "CODE", "DESCRIPTION")
}

func dischargeSpec() *audit.FormSpec {
	return audit.NewFormSpec(Discharge).
		EnumField("STATUS", "Tình trạng bệnh nhân", audit.FieldSelect, patientStatus).
		Field("DEATHDATE", "Ngày tử vong", audit.FieldDate).
		Field("DISCHARGE_DATE", "Ngày xuất viện", audit.FieldDate).
		Field("DISCHARGE_SUMMARY", "Tóm tắt xuất viện", audit.FieldTextarea).
		Field("NAME", "Tên kháng sinh", audit.FieldText).
		Field("DOSE", "Liều dùng", audit.FieldText).
		Field("START_DATE", "Ngày bắt đầu", audit.FieldDate).
		Field("END_DATE", "Ngày kết thúc", audit.FieldDate).
		Formset("antibiotics", "NAME", "DOSE", "START_DATE", "END_DATE")
}

func followUpSpec() *audit.FormSpec {
	return audit.NewFormSpec(FollowUp).
		Field("VISIT_DATE", "Ngày tái khám", audit.FieldDate).
		EnumField("RECOVERED", "Đã hồi phục", audit.FieldCheckbox, yesNo).
		Field("WEIGHT_KG", "Cân nặng (kg)", audit.FieldNumber).
		Field("NOTES", "Ghi chú", audit.FieldTextarea).
		Field("DATE", "Ngày nhập viện lại", audit.FieldDate).
		Field("REASON", "Lý do", audit.FieldText).
		Field("FACILITY", "Cơ sở y tế", audit.FieldText).
		Formset("rehospitalizations", "DATE", "REASON", "FACILITY")
}

func microbiologySpec() *audit.FormSpec {
	return audit.NewFormSpec(Microbiology).
		Field("SAMPLE_DATE", "Ngày lấy mẫu", audit.FieldDate).
		EnumField("SAMPLE_TYPE", "Loại bệnh phẩm", audit.FieldSelect, map[string]string{
			"Blood":  "Máu",
			"Urine":  "Nước tiểu",
			"Sputum": "Đờm",
			"CSF":    "Dịch não tủy",
		}).
		EnumField("CULTURE_POSITIVE", "Cấy dương tính", audit.FieldCheckbox, yesNo).
		Field("ORGANISM", "Vi sinh vật", audit.FieldText).
		Field("ANTIBIOTIC", "Kháng sinh", audit.FieldText).
		EnumField("RESULT", "Kết quả", audit.FieldSelect, map[string]string{
			"S": "Nhạy cảm",
			"I": "Trung gian",
			"R": "Đề kháng",
		}).
		Formset("susceptibilities", "ANTIBIOTIC", "RESULT")
}
