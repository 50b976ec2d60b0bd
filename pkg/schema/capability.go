package schema

// CapabilityDef describes a named, registered permission a step may be
// granted. The registry is a frozen, process-wide lookup table populated at
// package init — no dynamic re-registration at runtime, per the Kernel's
// build-time-registry convention for capabilities, rules, and migrations.
type CapabilityDef struct {
	Name                      string
	RequiresHumanConfirmation bool
}

var capabilityRegistry = map[string]CapabilityDef{
	"read_file":           {Name: "read_file", RequiresHumanConfirmation: false},
	"write_file":          {Name: "write_file", RequiresHumanConfirmation: true},
	"create_file":         {Name: "create_file", RequiresHumanConfirmation: true},
	"delete_file":         {Name: "delete_file", RequiresHumanConfirmation: true},
	"run_test_suite":      {Name: "run_test_suite", RequiresHumanConfirmation: false},
	"run_build":           {Name: "run_build", RequiresHumanConfirmation: false},
	"install_dependency":  {Name: "install_dependency", RequiresHumanConfirmation: true},
	"modify_ci_config":    {Name: "modify_ci_config", RequiresHumanConfirmation: true},
}

// CapabilityRequiresHumanConfirmation reports whether a named capability
// demands humanConfirmationProof on any RunnerEvidence that uses it.
// Unknown capabilities conservatively require confirmation.
func CapabilityRequiresHumanConfirmation(name string) bool {
	def, ok := capabilityRegistry[name]
	if !ok {
		return true
	}
	return def.RequiresHumanConfirmation
}

// KnownCapability reports whether name is a registered capability.
func KnownCapability(name string) bool {
	_, ok := capabilityRegistry[name]
	return ok
}
