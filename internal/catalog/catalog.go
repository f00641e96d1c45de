package catalog

// Category - группа типов кадровых действий
type Category string

const (
	CategoryHires        Category = "hires"
	CategoryMovements    Category = "movements"
	CategoryContractual  Category = "contractual"
	CategoryDisciplinary Category = "disciplinary"
	CategoryExits        Category = "exits"
)

// Коды типов кадровых действий
const (
	TypeHire               = "hire"
	TypePromotion          = "promotion"
	TypePositionChange     = "position_change"
	TypeDepartmentChange   = "department_change"
	TypeSupervisorChange   = "supervisor_change"
	TypeSalaryAdjustment   = "salary_adjustment"
	TypeScheduleChange     = "schedule_change"
	TypeContractChange     = "contract_change"
	TypeSuspension         = "suspension"
	TypeDisciplinaryNotice = "disciplinary_notice"
	TypeSanction           = "sanction"
	TypeTermination        = "termination"
)

// ActionTypeDefinition описывает тип кадрового действия
type ActionTypeDefinition struct {
	TypeCode         string   `json:"type_code"`
	DisplayName      string   `json:"display_name"`
	Category         Category `json:"category"`
	RequiresApproval bool     `json:"requires_approval"`
}

// Неизменяемая таблица типов. Порядок задаёт порядок вывода в каталоге.
var definitions = []ActionTypeDefinition{
	{TypeHire, "Hire", CategoryHires, true},
	{TypePromotion, "Promotion", CategoryMovements, true},
	{TypePositionChange, "Position Change", CategoryMovements, true},
	{TypeDepartmentChange, "Department Change", CategoryMovements, true},
	{TypeSupervisorChange, "Supervisor Change", CategoryMovements, true},
	{TypeSalaryAdjustment, "Salary Adjustment", CategoryContractual, true},
	{TypeScheduleChange, "Schedule Change", CategoryContractual, true},
	{TypeContractChange, "Contract Change", CategoryContractual, true},
	{TypeSuspension, "Suspension", CategoryDisciplinary, true},
	{TypeDisciplinaryNotice, "Disciplinary Notice", CategoryDisciplinary, false},
	{TypeSanction, "Sanction", CategoryDisciplinary, false},
	{TypeTermination, "Termination", CategoryExits, true},
}

var byCode = func() map[string]ActionTypeDefinition {
	m := make(map[string]ActionTypeDefinition, len(definitions))
	for _, def := range definitions {
		m[def.TypeCode] = def
	}
	return m
}()

// Types возвращает все типы действий в порядке объявления
func Types() []ActionTypeDefinition {
	out := make([]ActionTypeDefinition, len(definitions))
	copy(out, definitions)
	return out
}

// TypesByCategory возвращает типы, сгруппированные по категориям
func TypesByCategory() map[Category][]ActionTypeDefinition {
	grouped := make(map[Category][]ActionTypeDefinition)
	for _, def := range definitions {
		grouped[def.Category] = append(grouped[def.Category], def)
	}
	return grouped
}

// Lookup возвращает определение типа по коду
func Lookup(typeCode string) (ActionTypeDefinition, bool) {
	def, ok := byCode[typeCode]
	return def, ok
}
