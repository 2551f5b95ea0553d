package garanti

import "github.com/vposmap/vposmap/mapper"

func init() {
	mapper.Register("garanti", NewMapper)
}
