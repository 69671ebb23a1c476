package model

// Field 表格中的一个单元格
type Field struct {
	Name  string
	Value any
}

// Row 一行导出数据，字段顺序即首次出现的列顺序
type Row []Field

// Get 按列名取值
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Columns 多行的列并集，按首次出现顺序
func Columns(rows []Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for _, f := range r {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			cols = append(cols, f.Name)
		}
	}
	return cols
}
