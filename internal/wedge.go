package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type WedgeKind string

const (
	WedgeCash      WedgeKind = "CASH"
	WedgeBankrupt  WedgeKind = "BANKRUPT"
	WedgeLoseATurn WedgeKind = "LOSE A TURN"
	WedgeFreePlay  WedgeKind = "FREE PLAY"
	WedgePrize     WedgeKind = "PRIZE"
)

// Wedge is one wheel segment. Amount is set for cash wedges, Name for prizes.
//
// On the wire a cash wedge is a bare number, the symbolic wedges are their
// label string and a prize is {"type":"PRIZE","name":...}.
type Wedge struct {
	Kind   WedgeKind
	Amount int
	Name   string
}

func Cash(amount int) Wedge { return Wedge{Kind: WedgeCash, Amount: amount} }
func Bankrupt() Wedge       { return Wedge{Kind: WedgeBankrupt} }
func LoseATurn() Wedge      { return Wedge{Kind: WedgeLoseATurn} }
func FreePlay() Wedge       { return Wedge{Kind: WedgeFreePlay} }
func PrizeWedge(name string) Wedge {
	return Wedge{Kind: WedgePrize, Name: name}
}

// IsSpecial reports whether the wedge takes part in the wheel spacing shuffle.
func (w Wedge) IsSpecial() bool {
	return w.Kind != WedgeCash
}

func (w Wedge) String() string {
	switch w.Kind {
	case WedgeCash:
		return "$" + strconv.Itoa(w.Amount)
	case WedgePrize:
		return "PRIZE " + w.Name
	default:
		return string(w.Kind)
	}
}

type prizeWire struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (w Wedge) MarshalJSON() ([]byte, error) {
	switch w.Kind {
	case WedgeCash:
		return json.Marshal(w.Amount)
	case WedgePrize:
		return json.Marshal(prizeWire{Type: string(WedgePrize), Name: w.Name})
	case WedgeBankrupt, WedgeLoseATurn, WedgeFreePlay:
		return json.Marshal(string(w.Kind))
	}
	return nil, fmt.Errorf("unknown wedge kind %q", w.Kind)
}

func (w *Wedge) UnmarshalJSON(b []byte) error {
	var amount int
	if err := json.Unmarshal(b, &amount); err == nil {
		*w = Cash(amount)
		return nil
	}

	var label string
	if err := json.Unmarshal(b, &label); err == nil {
		switch WedgeKind(label) {
		case WedgeBankrupt, WedgeLoseATurn, WedgeFreePlay:
			*w = Wedge{Kind: WedgeKind(label)}
			return nil
		}
		return fmt.Errorf("unknown wedge %q", label)
	}

	var p prizeWire
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("decode wedge: %w", err)
	}
	if p.Type != string(WedgePrize) {
		return fmt.Errorf("unknown wedge type %q", p.Type)
	}
	*w = PrizeWedge(p.Name)
	return nil
}
