package codec

// Command verbs, decoded from the X-CMD header (spec §4.E).
const (
	CmdConnect    = "CONNECT"
	CmdDisconnect = "DISCONNECT"
	CmdRead       = "READ"
	CmdForward    = "FORWARD"
	CmdPoll       = "POLL"
)

// Outcome sentinels carried, codec-encoded, in the X-STATUS response
// header (spec §6). CONNECT's success outcome is the allocated id
// itself, not one of these constants.
const (
	StatusOK     = "OK"
	StatusFail   = "FAIL"
	StatusClosed = "CLOSED"
)

// DecoyBody is the fixed, innocuous body served on every response except
// a READ on a known id, whose body is the drained bytes (empty on CLOSED)
// (spec glossary: "decoy body"). It is deliberately
// inert HTML so that a proxy, WAF, or casual observer sees nothing but an
// ordinary 200 response.
const DecoyBody = `<!DOCTYPE html><html><head><title>200 OK</title></head><body><h1>It works!</h1></body></html>`
