package kuveyt

import "github.com/vposmap/vposmap/mapper"

func init() {
	mapper.Register("kuveyt", NewMapper)
}
