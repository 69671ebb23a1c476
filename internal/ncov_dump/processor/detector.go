package processor

import (
	"reflect"

	"ncov-dump/internal/ncov_dump/model"
)

// HasChanged 比较上次快照与本次数据。没有快照（首次运行、文件损坏）一律视为变化。
// 数组按顺序比较，对象不关心键顺序；数字按字面值比较。
func HasChanged(last, current *model.Payload) bool {
	if last == nil || current == nil {
		return true
	}
	return !reflect.DeepEqual(last.Data, current.Data)
}
