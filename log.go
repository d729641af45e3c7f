package pikala

import "github.com/op/go-logging"

// log is the package's single shared logger, in the same spirit as the
// teacher's one package-level highestProtocol constant: this engine is
// already not safe for concurrent use (§5), so a per-call injected
// logger would buy nothing. Callers that want the messages routed
// somewhere specific configure backends on this logger's name, the
// normal op/go-logging way.
var log = logging.MustGetLogger("pikala")

func init() {
	logging.SetFormatter(logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} %{module} %{message}`,
	))
}
