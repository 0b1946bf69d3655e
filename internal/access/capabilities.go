package access

// Capability names an action on a resource kind.
type Capability string

const (
	StationsCreate Capability = "stations.create"
	StationsRead   Capability = "stations.read"
	StationsUpdate Capability = "stations.update"
	StationsDelete Capability = "stations.delete"

	OfficersCreate Capability = "officers.create"
	OfficersRead   Capability = "officers.read"
	OfficersUpdate Capability = "officers.update"
	OfficersDelete Capability = "officers.delete"

	CasesCreate Capability = "cases.create"
	CasesRead   Capability = "cases.read"
	CasesUpdate Capability = "cases.update"
	CasesDelete Capability = "cases.delete"

	PersonsCreate Capability = "persons.create"
	PersonsRead   Capability = "persons.read"
	PersonsUpdate Capability = "persons.update"
	PersonsDelete Capability = "persons.delete"

	EvidenceCreate Capability = "evidence.create"
	EvidenceRead   Capability = "evidence.read"
	EvidenceUpdate Capability = "evidence.update"
	EvidenceDelete Capability = "evidence.delete"

	UsersCreate Capability = "users.create"
	UsersRead   Capability = "users.read"
	UsersUpdate Capability = "users.update"
	UsersDelete Capability = "users.delete"

	ReportsGenerate Capability = "reports.generate"
)

var allCapabilities = []Capability{
	StationsCreate, StationsRead, StationsUpdate, StationsDelete,
	OfficersCreate, OfficersRead, OfficersUpdate, OfficersDelete,
	CasesCreate, CasesRead, CasesUpdate, CasesDelete,
	PersonsCreate, PersonsRead, PersonsUpdate, PersonsDelete,
	EvidenceCreate, EvidenceRead, EvidenceUpdate, EvidenceDelete,
	UsersCreate, UsersRead, UsersUpdate, UsersDelete,
	ReportsGenerate,
}

// roleCapabilities is the static grant table. Station admins and officers
// never delete and never manage users.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: set(allCapabilities...),
	RoleStationAdmin: set(
		StationsRead,
		OfficersCreate, OfficersRead, OfficersUpdate,
		CasesCreate, CasesRead, CasesUpdate,
		PersonsCreate, PersonsRead, PersonsUpdate,
		EvidenceCreate, EvidenceRead, EvidenceUpdate,
		ReportsGenerate,
	),
	RoleOfficer: set(
		StationsRead,
		OfficersRead,
		CasesCreate, CasesRead, CasesUpdate,
		PersonsCreate, PersonsRead, PersonsUpdate,
		EvidenceCreate, EvidenceRead, EvidenceUpdate,
	),
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// HasCapability reports whether role is granted capability.
func HasCapability(role Role, capability Capability) bool {
	return roleCapabilities[role][capability]
}
