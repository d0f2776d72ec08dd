package telegram

import "github.com/NotCoffee418/european_smart_meter/pkg/types"

// Register is the closed set of OBIS codes the parser interprets.
type Register uint8

const (
	Unknown Register = iota
	// Import1 is energy delivered to the client, tariff 1.
	Import1
	// Export1 is energy delivered by the client, tariff 1.
	Export1
	Import2
	Export2
	TariffIndicator
)

var registers = map[string]Register{
	"1-0:1.8.1":   Import1,
	"1-0:2.8.1":   Export1,
	"1-0:1.8.2":   Import2,
	"1-0:2.8.2":   Export2,
	"0-0:96.14.0": TariffIndicator,
}

func LookupRegister(code string) Register {
	return registers[code]
}

// Tariff returns the tariff an accumulator register contributes to.
func (r Register) Tariff() (types.Tariff, bool) {
	switch r {
	case Import1, Export1:
		return types.Normal, true
	case Import2, Export2:
		return types.OffPeak, true
	default:
		return 0, false
	}
}

// Apply combines an accumulator reading into the running net consumption:
// imports add, exports subtract.
func (r Register) Apply(running, v types.Joule) types.Joule {
	switch r {
	case Import1, Import2:
		return running.Add(v)
	case Export1, Export2:
		return running.Sub(v)
	default:
		return running
	}
}

func (r Register) String() string {
	switch r {
	case Import1:
		return "import1"
	case Export1:
		return "export1"
	case Import2:
		return "import2"
	case Export2:
		return "export2"
	case TariffIndicator:
		return "tariff_indicator"
	default:
		return "unknown"
	}
}
