package interpreter

// ResponseKind tells the caller what the interpreter did with a script.
type ResponseKind int

const (
	// KindCompleted means every line was executed.
	KindCompleted ResponseKind = iota
	// KindPaused means a prefix was executed and the rest is waiting for Continue.
	KindPaused
	// KindConfirmationRequired means a destructive command needs an explicit approval flag.
	KindConfirmationRequired
)

func (k ResponseKind) String() string {
	switch k {
	case KindPaused:
		return "paused"
	case KindConfirmationRequired:
		return "confirmation_required"
	default:
		return "completed"
	}
}

// ScriptResponse is the decoded outcome of a Submit or Continue exchange.
type ScriptResponse struct {
	Kind ResponseKind
	// Output is the console text produced by this exchange. May be empty.
	Output string
	// Message is the confirmation prompt. Only set for KindConfirmationRequired.
	Message string
	// Remaining holds the lines not yet executed, in original order.
	// For KindConfirmationRequired it is informational only.
	Remaining []string
	// Results are the per-line echoes reported by the interpreter.
	Results []string
}

// scriptRequest is the body of POST /api/executeScript.
type scriptRequest struct {
	Script string `json:"script"`
}

// continueRequest is the body of POST /api/continueScript.
type continueRequest struct {
	Remaining []string `json:"remaining"`
}

// scriptReply is the wire shape shared by executeScript and continueScript.
type scriptReply struct {
	Confirm   bool     `json:"confirm,omitempty"`
	Message   string   `json:"message,omitempty"`
	Results   []string `json:"results"`
	Console   string   `json:"console"`
	Paused    bool     `json:"paused"`
	Remaining []string `json:"remaining,omitempty"`
}

func (r *scriptReply) toResponse() *ScriptResponse {
	resp := &ScriptResponse{
		Kind:      KindCompleted,
		Output:    r.Console,
		Remaining: r.Remaining,
		Results:   r.Results,
	}
	switch {
	case r.Confirm:
		resp.Kind = KindConfirmationRequired
		resp.Message = r.Message
	case r.Paused:
		resp.Kind = KindPaused
	default:
		resp.Remaining = nil
	}
	if resp.Kind == KindPaused && resp.Remaining == nil {
		resp.Remaining = []string{}
	}
	return resp
}

type loginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	PartitionID string `json:"partition_id"`
}

type messageReply struct {
	Message string `json:"message"`
}

type errorReply struct {
	Error string `json:"error"`
}

// Disk is a disk that has at least one mounted partition.
type Disk struct {
	Name              string   `json:"name"`
	Path              string   `json:"path"`
	MountedPartitions []string `json:"mounted_partitions"`
}

type disksReply struct {
	Disks []Disk `json:"disks"`
}

type allDisksReply struct {
	Disks []string `json:"disks"`
}

// Partition describes a mounted partition of a disk.
type Partition struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Start    int64  `json:"start"`
	Size     int64  `json:"size"`
	LoggedIn bool   `json:"loggedIn"`
}

// TreeNode is one entry of a partition's content tree.
type TreeNode struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"` // "folder" or "file"
	Children []TreeNode `json:"children,omitempty"`
}

// IsFolder reports whether the node can hold children.
func (n TreeNode) IsFolder() bool {
	return n.Type == "folder"
}

// Health is the reply of GET /health.
type Health struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Host      string `json:"host"`
}
