package report

// Section は折りたたみ可能なレポートのセクション。
type Section string

const (
	SectionNone        Section = ""
	SectionCauses      Section = "causes"
	SectionRemedies    Section = "remedies"
	SectionPrecautions Section = "precautions"
	SectionDiet        Section = "diet"
	SectionProducts    Section = "products"
)

var knownSections = map[Section]bool{
	SectionCauses:      true,
	SectionRemedies:    true,
	SectionPrecautions: true,
	SectionDiet:        true,
	SectionProducts:    true,
}

// ParseSection はクエリ値をSectionに変換する。未知の値はSectionNone。
func ParseSection(s string) Section {
	if knownSections[Section(s)] {
		return Section(s)
	}
	return SectionNone
}

// Accordion は同時に1つだけ展開できる折りたたみ状態。
// ゼロ値はすべて折りたたまれた状態。
type Accordion struct {
	open Section
}

// NewAccordion はsectionが展開された状態を返す。
func NewAccordion(open Section) Accordion {
	return Accordion{open: ParseSection(string(open))}
}

// Open は展開中のセクションを返す。
func (a Accordion) Open() Section {
	return a.open
}

// IsOpen はsectionが展開されているかを返す。
func (a Accordion) IsOpen(s Section) bool {
	return s != SectionNone && a.open == s
}

// Toggle はsectionを切り替えた後の状態を返す。
// 展開中のセクションを切り替えると閉じ、別のセクションを切り替えると
// 以前のセクションを閉じてそのセクションを開く。
func (a Accordion) Toggle(s Section) Accordion {
	if a.open == s {
		return Accordion{}
	}
	return NewAccordion(s)
}
