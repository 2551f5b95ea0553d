package estpos

import "github.com/vposmap/vposmap/mapper"

// Register EST mapper with the gateway registry
func init() {
	mapper.Register("estpos", NewMapper)
}
