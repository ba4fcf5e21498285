package claim

import (
	"fmt"
	"strings"
)

// Module names an external engine stage a claim can request.
type Module string

const (
	// Editors
	MCE  Module = "MCE"
	IOCE Module = "IOCE"
	// Groupers
	MSDRG Module = "MSDRG"
	HHAG  Module = "HHAG"
	CMG   Module = "CMG"
	// Pricers
	IPPS    Module = "IPPS"
	OPPS    Module = "OPPS"
	IRF     Module = "IRF"
	HHA     Module = "HHA"
	SNF     Module = "SNF"
	LTCH    Module = "LTCH"
	PSYCH   Module = "PSYCH"
	ESRD    Module = "ESRD"
	HOSPICE Module = "HOSPICE"
	FQHC    Module = "FQHC"
)

// Family groups modules by the kind of engine behind them.
type Family int

const (
	Editor Family = iota
	Grouper
	Pricer
)

func (f Family) String() string {
	switch f {
	case Editor:
		return "editor"
	case Grouper:
		return "grouper"
	case Pricer:
		return "pricer"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

func (f Family) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Family) UnmarshalText(b []byte) error {
	for _, c := range []Family{Editor, Grouper, Pricer} {
		if c.String() == string(b) {
			*f = c
			return nil
		}
	}
	return fmt.Errorf("unknown engine family %q", b)
}

// AllModules lists every module in canonical run order: editors, then
// groupers, then pricers.
var AllModules = []Module{
	MCE, IOCE,
	MSDRG, HHAG, CMG,
	IPPS, OPPS, IRF, HHA, SNF, LTCH, PSYCH, ESRD, HOSPICE, FQHC,
}

var families = map[Module]Family{
	MCE: Editor, IOCE: Editor,
	MSDRG: Grouper, HHAG: Grouper, CMG: Grouper,
	IPPS: Pricer, OPPS: Pricer, IRF: Pricer, HHA: Pricer, SNF: Pricer,
	LTCH: Pricer, PSYCH: Pricer, ESRD: Pricer, HOSPICE: Pricer, FQHC: Pricer,
}

// Family returns the engine family of m.
func (m Module) Family() Family {
	return families[m]
}

// Valid reports whether m is a known module.
func (m Module) Valid() bool {
	_, ok := families[m]
	return ok
}

// Rank is the position of m in AllModules, or -1.
func (m Module) Rank() int {
	for i, x := range AllModules {
		if x == m {
			return i
		}
	}
	return -1
}

// ParseModule accepts module names case-insensitively. "IPF" is accepted as
// an alias of PSYCH.
func ParseModule(s string) (Module, error) {
	m := Module(strings.ToUpper(strings.TrimSpace(s)))
	if m == "IPF" {
		m = PSYCH
	}
	if !m.Valid() {
		return "", fmt.Errorf("unknown module %q", s)
	}
	return m, nil
}

// Setting is the care setting of a claim. Adapters declare which settings
// they accept.
type Setting string

const (
	Inpatient      Setting = "inpatient"
	Outpatient     Setting = "outpatient"
	HomeHealth     Setting = "home-health"
	Rehabilitation Setting = "rehabilitation"
	Hospice        Setting = "hospice"
	Dialysis       Setting = "dialysis"
	SkilledNursing Setting = "skilled-nursing"
)

// AllSettings lists the care settings in canonical order.
var AllSettings = []Setting{Inpatient, Outpatient, HomeHealth, Rehabilitation, Hospice, Dialysis, SkilledNursing}

// settingByBillType maps the facility type and classification digits of a
// bill type to a setting.
var settingByBillType = map[string]Setting{
	"11": Inpatient, "12": Inpatient,
	"13": Outpatient, "14": Outpatient, "71": Outpatient, "77": Outpatient, "85": Outpatient,
	"18": SkilledNursing, "21": SkilledNursing, "22": SkilledNursing,
	"32": HomeHealth, "33": HomeHealth, "34": HomeHealth,
	"72": Dialysis,
	"81": Hospice, "82": Hospice,
}

// ResolveSetting returns the declared setting, or infers one from the
// rehabilitation assessment and bill type. Returns "" when nothing applies.
func (c *Claim) ResolveSetting() Setting {
	if c.Setting != "" {
		return c.Setting
	}
	if c.IRFPAI != nil {
		return Rehabilitation
	}
	bt := strings.TrimLeft(strings.TrimSpace(c.BillType), "0")
	if len(bt) < 2 {
		return ""
	}
	return settingByBillType[bt[:2]]
}
