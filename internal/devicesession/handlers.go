package devicesession

// Built-in device_type handlers. Each self-registers in init(), the
// same pattern the teacher pack uses for parser/reporter plugins
// (blank-imported packages calling plugin.RegisterX at init time) —
// collapsed here into a single package since device_type handlers
// carry no transport-specific code of their own, only command text.

type ciscoIOS struct{}

func (ciscoIOS) Name() string                { return "cisco_ios" }
func (ciscoIOS) PagerDisableCommand() string { return "terminal length 0" }
func (ciscoIOS) EnablePromptSuffix() string  { return "#" }

type ciscoXE struct{ ciscoIOS }

func (ciscoXE) Name() string { return "cisco_xe" }

type ciscoNXOS struct{}

func (ciscoNXOS) Name() string                { return "cisco_nxos" }
func (ciscoNXOS) PagerDisableCommand() string { return "terminal length 0" }
func (ciscoNXOS) EnablePromptSuffix() string  { return "#" }

type ciscoIOSTelnet struct{ ciscoIOS }

func (ciscoIOSTelnet) Name() string { return "cisco_ios_telnet" }

// generic is used for device_type values the engine doesn't special-case;
// it issues no pager-disable hint, relying on the operator to have
// disabled pagination out of band (spec.md §4.2).
type generic struct{}

func (generic) Name() string                { return "generic" }
func (generic) PagerDisableCommand() string { return "" }
func (generic) EnablePromptSuffix() string  { return "#" }

func init() {
	Register("cisco_ios", func() Handler { return ciscoIOS{} })
	Register("cisco_xe", func() Handler { return ciscoXE{} })
	Register("cisco_nxos", func() Handler { return ciscoNXOS{} })
	Register("cisco_ios_telnet", func() Handler { return ciscoIOSTelnet{} })
	Register("generic", func() Handler { return generic{} })
}
