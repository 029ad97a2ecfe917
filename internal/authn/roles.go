package authn

// Role is the closed set of caller roles. RoleNone is an unauthenticated
// caller; a user without a role row is treated as a beneficiary at token
// issuance and never reaches handlers as RoleNone.
type Role string

const (
	RoleNone        Role = ""
	RoleAdmin       Role = "admin"
	RoleBeneficiary Role = "beneficiary"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleBeneficiary:
		return Role(s), true
	}
	return RoleNone, false
}

type Resource string

const (
	ResourceCampaigns     Resource = "campaigns"
	ResourceBeneficiaries Resource = "beneficiaries"
	ResourceTasks         Resource = "tasks"
)

type Op int

const (
	OpRead Op = iota
	OpWrite
)

// capabilities is the full permission table. Task writes are deliberately
// coarse: any beneficiary may write any task, matching the deployed behavior.
var capabilities = map[Resource]map[Op]map[Role]bool{
	ResourceCampaigns: {
		OpRead:  {RoleAdmin: true},
		OpWrite: {RoleAdmin: true},
	},
	ResourceBeneficiaries: {
		OpRead:  {RoleAdmin: true},
		OpWrite: {RoleAdmin: true},
	},
	ResourceTasks: {
		OpRead:  {RoleAdmin: true, RoleBeneficiary: true},
		OpWrite: {RoleAdmin: true, RoleBeneficiary: true},
	},
}

// Allowed evaluates the capability table. Unknown roles and resources deny.
func Allowed(role Role, resource Resource, op Op) bool {
	ops, ok := capabilities[resource]
	if !ok {
		return false
	}
	return ops[op][role]
}
