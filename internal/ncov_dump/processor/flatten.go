package processor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ncov-dump/internal/ncov_dump/helper"
	"ncov-dump/internal/ncov_dump/model"
)

var ErrMalformedRecord = errors.New("malformed record")

// TimeFields 非地区集合中按毫秒时间戳转换的字段
var TimeFields = []string{"pubDate", "createTime", "modifyTime", "dataInfoTime", "crawlTime", "updateTime"}

func isTimeField(name string) bool {
	for _, f := range TimeFields {
		if f == name {
			return true
		}
	}
	return false
}

func missing(field string) error {
	return fmt.Errorf("%w: %s missing", ErrMalformedRecord, field)
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func optNumber(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// provinceFields 省级公共字段，城市行会重复携带
func provinceFields(rec model.AreaRecord) (model.Row, error) {
	row := make(model.Row, 0, 19)

	// 大洲中英文名成对出现，缺一则都置空
	if rec.ContinentName != nil && rec.ContinentEnglishName != nil {
		row = append(row,
			model.Field{Name: "continentName", Value: *rec.ContinentName},
			model.Field{Name: "continentEnglishName", Value: *rec.ContinentEnglishName},
		)
	} else {
		row = append(row,
			model.Field{Name: "continentName"},
			model.Field{Name: "continentEnglishName"},
		)
	}

	if rec.CountryName == nil {
		return nil, missing("countryName")
	}
	if rec.ProvinceName == nil {
		return nil, missing("provinceName")
	}
	counts := []struct {
		name  string
		value *float64
	}{
		{"confirmedCount", rec.ConfirmedCount},
		{"suspectedCount", rec.SuspectedCount},
		{"curedCount", rec.CuredCount},
		{"deadCount", rec.DeadCount},
	}
	for _, c := range counts {
		if c.value == nil {
			return nil, missing(c.name)
		}
	}

	row = append(row,
		model.Field{Name: "countryName", Value: *rec.CountryName},
		model.Field{Name: "countryEnglishName", Value: optString(rec.CountryEnglishName)},
		model.Field{Name: "provinceName", Value: *rec.ProvinceName},
		model.Field{Name: "provinceEnglishName", Value: optString(rec.ProvinceEnglishName)},
		model.Field{Name: "province_zipCode", Value: optNumber(rec.LocationID)},
	)
	for _, c := range counts {
		row = append(row, model.Field{Name: "province_" + c.name, Value: *c.value})
	}
	return row, nil
}

func cityFields(city model.AreaCity) (model.Row, error) {
	if city.CityName == nil {
		return nil, missing("cityName")
	}
	counts := []struct {
		name  string
		value *float64
	}{
		{"confirmedCount", city.ConfirmedCount},
		{"suspectedCount", city.SuspectedCount},
		{"curedCount", city.CuredCount},
		{"deadCount", city.DeadCount},
	}
	row := model.Row{
		{Name: "cityName", Value: *city.CityName},
		{Name: "cityEnglishName", Value: optString(city.CityEnglishName)},
		{Name: "city_zipCode", Value: optNumber(city.LocationID)},
	}
	for _, c := range counts {
		if c.value == nil {
			return nil, fmt.Errorf("%w (city %s)", missing(c.name), *city.CityName)
		}
		row = append(row, model.Field{Name: "city_" + c.name, Value: *c.value})
	}
	return row, nil
}

// FlattenArea 把一条省级记录展开成行：有 N 个城市输出 N 行，没有城市输出 1 行且不含城市列
func FlattenArea(rec model.AreaRecord, loc *time.Location) ([]model.Row, error) {
	base, err := provinceFields(rec)
	if err != nil {
		return nil, err
	}
	if rec.UpdateTime == nil {
		return nil, missing("updateTime")
	}
	updated := model.Field{
		Name:  "updateTime",
		Value: helper.FromEpochMillis(int64(*rec.UpdateTime), loc),
	}

	if len(rec.Cities) == 0 {
		return []model.Row{append(base, updated)}, nil
	}

	rows := make([]model.Row, 0, len(rec.Cities))
	for _, city := range rec.Cities {
		// 空的城市对象按没有城市处理，输出一行省级数据
		if city.Empty() {
			row := make(model.Row, 0, len(base)+1)
			row = append(row, base...)
			rows = append(rows, append(row, updated))
			continue
		}
		cf, err := cityFields(city)
		if err != nil {
			return nil, fmt.Errorf("province %s: %w", *rec.ProvinceName, err)
		}
		row := make(model.Row, 0, len(base)+len(cf)+1)
		row = append(row, base...)
		row = append(row, cf...)
		row = append(row, updated)
		rows = append(rows, row)
	}
	return rows, nil
}

// FlattenDocument 非地区集合：文档原样成为一行，时间字段由毫秒时间戳转为时间，null 输出为空
func FlattenDocument(doc bson.D, loc *time.Location) model.Row {
	if loc == nil {
		loc = time.Local
	}
	row := make(model.Row, 0, len(doc))
	for _, e := range doc {
		v := e.Value
		if isTimeField(e.Key) {
			v = normalizeTime(v, loc)
		}
		row = append(row, model.Field{Name: e.Key, Value: v})
	}
	return row
}

func normalizeTime(v any, loc *time.Location) any {
	switch t := v.(type) {
	case int32:
		return helper.FromEpochMillis(int64(t), loc)
	case int64:
		return helper.FromEpochMillis(t, loc)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return helper.FromEpochMillis(int64(t), loc)
	case primitive.DateTime:
		return t.Time().In(loc)
	}
	return v
}
