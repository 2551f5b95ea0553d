package payfor

import "github.com/vposmap/vposmap/mapper"

// Register PayFor mapper with the gateway registry
func init() {
	mapper.Register("payfor", NewMapper)
}
