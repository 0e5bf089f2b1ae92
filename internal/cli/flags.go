package cli

import "expenses/internal/core"

// optionalString is a flag.Value that remembers whether it was set, so an
// explicit empty value is distinguishable from an omitted flag.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value, o.set = s, true
	return nil
}

func (o *optionalString) optional() core.Optional[string] {
	if !o.set {
		return core.None[string]()
	}
	return core.Some(o.value)
}

// amountFlag parses a decimal amount. Sign is not checked here: the tracker
// rejects non-positive amounts with core.ErrInvalidAmount.
type amountFlag struct {
	value core.Money
	set   bool
}

func (a *amountFlag) String() string {
	if !a.set {
		return ""
	}
	return a.value.String()
}

func (a *amountFlag) Set(s string) error {
	m, err := core.ParseMoney(s)
	if err != nil {
		return err
	}
	a.value, a.set = m, true
	return nil
}

func (a *amountFlag) optional() core.Optional[core.Money] {
	if !a.set {
		return core.None[core.Money]()
	}
	return core.Some(a.value)
}
