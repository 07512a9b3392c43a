// Package booking implements the three-step project inquiry form: field model,
// step validation, attachments, draft autosave and submission.
package booking

// Step is a wizard screen, numbered from 1.
type Step int

const (
	Step1 Step = iota + 1
	Step2
	Step3

	TotalSteps = int(Step3)
)

var stepTitles = map[Step]string{
	Step1: "Contact",
	Step2: "Project",
	Step3: "Schedule",
}

// Title returns the step label shown in the progress header.
func (s Step) Title() string { return stepTitles[s] }

// Valid reports whether s is a real step.
func (s Step) Valid() bool { return s >= Step1 && s <= Step3 }

// Kind decides how a field is stored and which format rule applies.
type Kind int

const (
	KindText Kind = iota
	KindEmail
	KindURL
	KindTel
	KindSelect
	KindTextarea
	KindCheckbox
	KindRadio
	KindHidden
	KindHoneypot
)

// Field names used by the form.
const (
	FieldFullName     = "fullName"
	FieldEmail        = "email"
	FieldCompanyName  = "companyName"
	FieldJobTitle     = "jobTitle"
	FieldPhone        = "phone"
	FieldWebsite      = "website"
	FieldServiceType  = "serviceType"
	FieldBudget       = "budget"
	FieldTimeline     = "timeline"
	FieldTeamSize     = "teamSize"
	FieldTechStack    = "techStack"
	FieldProject      = "project"
	FieldReferral     = "referral"
	FieldContactTime  = "contactTime"
	FieldUrgency      = "urgency"
	FieldSelectedDate = "selected-date"
	FieldHoneypot     = "website-url"
)

// Field describes one form control.
type Field struct {
	Name     string
	Step     Step
	Kind     Kind
	Required bool
}

// Fields is the form definition in display order.
var Fields = []Field{
	{Name: FieldFullName, Step: Step1, Kind: KindText, Required: true},
	{Name: FieldEmail, Step: Step1, Kind: KindEmail, Required: true},
	{Name: FieldCompanyName, Step: Step1, Kind: KindText, Required: true},
	{Name: FieldJobTitle, Step: Step1, Kind: KindText},
	{Name: FieldPhone, Step: Step1, Kind: KindTel},
	{Name: FieldWebsite, Step: Step1, Kind: KindURL},

	{Name: FieldServiceType, Step: Step2, Kind: KindCheckbox},
	{Name: FieldBudget, Step: Step2, Kind: KindSelect, Required: true},
	{Name: FieldTimeline, Step: Step2, Kind: KindSelect, Required: true},
	{Name: FieldTeamSize, Step: Step2, Kind: KindSelect},
	{Name: FieldTechStack, Step: Step2, Kind: KindText},
	{Name: FieldProject, Step: Step2, Kind: KindTextarea, Required: true},

	{Name: FieldReferral, Step: Step3, Kind: KindSelect},
	{Name: FieldContactTime, Step: Step3, Kind: KindSelect},
	{Name: FieldUrgency, Step: Step3, Kind: KindRadio},
	{Name: FieldSelectedDate, Step: Step3, Kind: KindHidden},
	{Name: FieldHoneypot, Step: Step3, Kind: KindHoneypot},
}

var fieldIndex = func() map[string]Field {
	m := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		m[f.Name] = f
	}
	return m
}()

// LookupField returns the definition of a named field.
func LookupField(name string) (Field, bool) {
	f, ok := fieldIndex[name]
	return f, ok
}

// DefaultUrgency is sent when no urgency option was chosen.
const DefaultUrgency = "medium"
