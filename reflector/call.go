package reflector

// IdentitySeparator joins owner type and method in a call identity.
const IdentitySeparator = `\`

// Call describes an arbitrary cacheable method invocation. There is no
// statement to inspect, so Tables and Rows are asserted by the caller.
type Call struct {
	Database string
	Owner    string
	Method   string
	// Discriminator keys independent sub results of one logical call.
	Discriminator string
	Args          []any
	Tables        []string
	Rows          RowMap
}

// CallReflector reflects a Call. Arguments are snapshotted on construction so
// that mutations made by the wrapped call do not leak into the key.
type CallReflector struct {
	database string
	identity string
	args     []any
	tables   []string
	rows     RowMap
}

var _ Reflector = (*CallReflector)(nil)

// NewCallReflector builds the reflector for c.
func NewCallReflector(c Call) *CallReflector {
	identity := c.Owner + IdentitySeparator + c.Method
	if c.Discriminator != "" {
		identity += ":" + c.Discriminator
	}
	return &CallReflector{
		database: c.Database,
		identity: identity,
		args:     Snapshot(c.Args),
		tables:   append([]string(nil), c.Tables...),
		rows:     c.Rows.Clone(),
	}
}

func (r *CallReflector) Database() string  { return r.database }
func (r *CallReflector) Tables() []string  { return append([]string(nil), r.tables...) }
func (r *CallReflector) Rows() RowMap      { return r.rows.Clone() }
func (r *CallReflector) Identity() string  { return r.identity }
func (r *CallReflector) Parameters() []any { return append([]any(nil), r.args...) }
