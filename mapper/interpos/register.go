package interpos

import "github.com/vposmap/vposmap/mapper"

func init() {
	mapper.Register("interpos", NewMapper)
}
