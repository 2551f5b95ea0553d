package posnet

import "github.com/vposmap/vposmap/mapper"

func init() {
	mapper.Register("posnet", NewMapper)
}
