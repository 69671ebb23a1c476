package processor

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ncov-dump/internal/ncov_dump/helper"
	"ncov-dump/internal/ncov_dump/model"
)

// utf8BOM 让常见表格软件按 UTF-8 识别中文
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TableOptions 单元格渲染规则
type TableOptions struct {
	IntegerNumbers bool // 地区集合：数值一律输出为整数
	Location       *time.Location
}

// WriteTable 输出带 BOM 的 CSV，表头为各行字段按首次出现顺序的并集
func WriteTable(w io.Writer, rows []model.Row, opts TableOptions) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cols := model.Columns(rows)
	if len(cols) == 0 {
		return nil
	}
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i := range record {
			record[i] = ""
		}
		for _, f := range row {
			record[index[f.Name]] = FormatCell(f.Value, opts)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatCell 单元格文本。nil 与 NaN 输出为空串
func FormatCell(v any, opts TableOptions) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(helper.TimeFormat)
	case float64:
		return formatFloat(x, opts.IntegerNumbers)
	case float32:
		return formatFloat(float64(x), opts.IntegerNumbers)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		// 与已发布的历史 CSV 保持一致
		if x {
			return "True"
		}
		return "False"
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		loc := opts.Location
		if loc == nil {
			loc = time.Local
		}
		return x.Time().In(loc).Format(helper.TimeFormat)
	case primitive.Null, primitive.Undefined:
		return ""
	}
	return nestedJSON(v)
}

func formatFloat(f float64, integer bool) string {
	if math.IsNaN(f) {
		return ""
	}
	if integer && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// nestedJSON 嵌套文档与数组以紧凑的 relaxed extended JSON 输出
func nestedJSON(v any) string {
	switch x := v.(type) {
	case bson.D:
		b, err := bson.MarshalExtJSON(x, false, false)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	case bson.A:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = nestedJSON(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
