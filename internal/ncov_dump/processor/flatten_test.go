package processor

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ncov-dump/internal/ncov_dump/model"
)

var cst = time.FixedZone("CST", 8*3600)

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }
func names(r model.Row) []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Name
	}
	return out
}

func hubei() model.AreaRecord {
	return model.AreaRecord{
		ContinentName:        str("亚洲"),
		ContinentEnglishName: str("Asia"),
		CountryName:          str("中国"),
		CountryEnglishName:   str("China"),
		ProvinceName:         str("湖北省"),
		ProvinceEnglishName:  str("Hubei"),
		LocationID:           num(420000),
		ConfirmedCount:       num(7153),
		SuspectedCount:       num(0),
		CuredCount:           num(168),
		DeadCount:            num(249),
		UpdateTime:           num(1580515200000),
	}
}

func TestFlattenAreaCities(t *testing.T) {
	t.Parallel()
	rec := hubei()
	rec.Cities = []model.AreaCity{
		{CityName: str("武汉"), CityEnglishName: str("Wuhan"), LocationID: num(420100), ConfirmedCount: num(3215), SuspectedCount: num(0), CuredCount: num(134), DeadCount: num(192)},
		{CityName: str("黄冈"), LocationID: num(421100), ConfirmedCount: num(726), SuspectedCount: num(0), CuredCount: num(7), DeadCount: num(12)},
		{CityName: str("待明确地区"), ConfirmedCount: num(3), SuspectedCount: num(0), CuredCount: num(0), DeadCount: num(0)},
	}
	rows, err := FlattenArea(rec, cst)
	if err != nil {
		t.Fatalf("FlattenArea() = %v, want nil", err)
	}
	if len(rows) != 3 {
		t.Fatalf("FlattenArea() rows = %d, want 3", len(rows))
	}

	province := []string{"continentName", "countryName", "provinceName", "province_zipCode", "province_confirmedCount", "updateTime"}
	for _, col := range province {
		first, _ := rows[0].Get(col)
		for i, r := range rows[1:] {
			if v, _ := r.Get(col); v != first {
				t.Errorf("row %d %s = %v, want %v", i+1, col, v, first)
			}
		}
	}
	wantCities := []any{"武汉", "黄冈", "待明确地区"}
	for i, r := range rows {
		if v, _ := r.Get("cityName"); v != wantCities[i] {
			t.Errorf("row %d cityName = %v, want %v", i, v, wantCities[i])
		}
	}
	if v, ok := rows[1].Get("cityEnglishName"); !ok || v != nil {
		t.Errorf("row 1 cityEnglishName = %v, %v, want nil, true", v, ok)
	}
	if v, _ := rows[2].Get("city_zipCode"); v != nil {
		t.Errorf("row 2 city_zipCode = %v, want nil", v)
	}

	wantCols := []string{
		"continentName", "continentEnglishName", "countryName", "countryEnglishName",
		"provinceName", "provinceEnglishName", "province_zipCode", "province_confirmedCount",
		"province_suspectedCount", "province_curedCount", "province_deadCount",
		"cityName", "cityEnglishName", "city_zipCode", "city_confirmedCount",
		"city_suspectedCount", "city_curedCount", "city_deadCount", "updateTime",
	}
	got := names(rows[0])
	if len(got) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", got, wantCols)
	}
	for i := range wantCols {
		if got[i] != wantCols[i] {
			t.Fatalf("columns = %v, want %v", got, wantCols)
		}
	}
	updated, _ := rows[0].Get("updateTime")
	if ts := updated.(time.Time).In(cst).Format("2006-01-02 15:04:05"); ts != "2020-02-01 08:00:00" {
		t.Errorf("updateTime = %s, want 2020-02-01 08:00:00", ts)
	}
}

func TestFlattenAreaNoCities(t *testing.T) {
	t.Parallel()
	for _, cities := range [][]model.AreaCity{nil, {}} {
		rec := hubei()
		rec.Cities = cities
		rows, err := FlattenArea(rec, cst)
		if err != nil {
			t.Fatalf("FlattenArea() = %v, want nil", err)
		}
		if len(rows) != 1 {
			t.Fatalf("FlattenArea() rows = %d, want 1", len(rows))
		}
		if _, ok := rows[0].Get("cityName"); ok {
			t.Errorf("row without cities has cityName")
		}
		if len(rows[0]) != 12 {
			t.Errorf("row has %d fields, want 12", len(rows[0]))
		}
	}
}

func TestFlattenAreaEmptyCity(t *testing.T) {
	t.Parallel()
	rec := hubei()
	rec.Cities = []model.AreaCity{
		{},
		{CityName: str("武汉"), ConfirmedCount: num(3215), SuspectedCount: num(0), CuredCount: num(134), DeadCount: num(192)},
	}
	rows, err := FlattenArea(rec, cst)
	if err != nil {
		t.Fatalf("FlattenArea() = %v, want nil", err)
	}
	if len(rows) != 2 {
		t.Fatalf("FlattenArea() rows = %d, want 2", len(rows))
	}
	if _, ok := rows[0].Get("cityName"); ok || len(rows[0]) != 12 {
		t.Errorf("empty city row = %v, want province fields only", names(rows[0]))
	}
	if v, _ := rows[1].Get("cityName"); v != "武汉" {
		t.Errorf("second row cityName = %v, want 武汉", v)
	}
}

func TestFlattenAreaEmptyCityFromStore(t *testing.T) {
	t.Parallel()
	raw, err := bson.Marshal(bson.D{
		{Key: "countryName", Value: "中国"},
		{Key: "provinceName", Value: "湖北省"},
		{Key: "confirmedCount", Value: int32(1)},
		{Key: "suspectedCount", Value: int32(0)},
		{Key: "curedCount", Value: int32(0)},
		{Key: "deadCount", Value: int32(0)},
		{Key: "cities", Value: bson.A{bson.D{}}},
		{Key: "updateTime", Value: int64(1580515200000)},
	})
	if err != nil {
		t.Fatal(err)
	}
	var rec model.AreaRecord
	if err := bson.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	rows, err := FlattenArea(rec, cst)
	if err != nil || len(rows) != 1 {
		t.Fatalf("FlattenArea() = %d rows, %v, want 1 row", len(rows), err)
	}
}

func TestFlattenAreaContinentPair(t *testing.T) {
	t.Parallel()
	rec := hubei()
	rec.ContinentEnglishName = nil
	rec.CountryEnglishName = nil
	rows, err := FlattenArea(rec, cst)
	if err != nil {
		t.Fatalf("FlattenArea() = %v, want nil", err)
	}
	for _, col := range []string{"continentName", "continentEnglishName", "countryEnglishName"} {
		if v, ok := rows[0].Get(col); !ok || v != nil {
			t.Errorf("%s = %v, %v, want nil, true", col, v, ok)
		}
	}
	if v, _ := rows[0].Get("countryName"); v != "中国" {
		t.Errorf("countryName = %v, want 中国", v)
	}
}

func TestFlattenAreaMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(r *model.AreaRecord)
	}{
		{"no country", func(r *model.AreaRecord) { r.CountryName = nil }},
		{"no province", func(r *model.AreaRecord) { r.ProvinceName = nil }},
		{"no confirmed", func(r *model.AreaRecord) { r.ConfirmedCount = nil }},
		{"no dead", func(r *model.AreaRecord) { r.DeadCount = nil }},
		{"no update time", func(r *model.AreaRecord) { r.UpdateTime = nil }},
		{"city without name", func(r *model.AreaRecord) {
			r.Cities = []model.AreaCity{{ConfirmedCount: num(1), SuspectedCount: num(0), CuredCount: num(0), DeadCount: num(0)}}
		}},
		{"city without cured", func(r *model.AreaRecord) {
			r.Cities = []model.AreaCity{{CityName: str("武汉"), ConfirmedCount: num(1), SuspectedCount: num(0), DeadCount: num(0)}}
		}},
	}
	for _, test := range tests {
		rec := hubei()
		test.mutate(&rec)
		if _, err := FlattenArea(rec, cst); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("%s: FlattenArea() = %v, want %v", test.name, err, ErrMalformedRecord)
		}
	}
}

func TestFlattenDocument(t *testing.T) {
	t.Parallel()
	oid := primitive.NewObjectID()
	doc := bson.D{
		{Key: "_id", Value: oid},
		{Key: "title", Value: "新增确诊"},
		{Key: "pubDate", Value: int64(1580515200000)},
		{Key: "createTime", Value: int32(0)},
		{Key: "modifyTime", Value: nil},
		{Key: "crawlTime", Value: 1580515201999.0},
		{Key: "dataInfoTime", Value: "not a number"},
		{Key: "confirmedCount", Value: int64(11791)},
	}
	row := FlattenDocument(doc, cst)
	if len(row) != len(doc) {
		t.Fatalf("FlattenDocument() fields = %d, want %d", len(row), len(doc))
	}
	for i, e := range doc {
		if row[i].Name != e.Key {
			t.Fatalf("field %d = %s, want %s", i, row[i].Name, e.Key)
		}
	}
	opts := TableOptions{Location: cst}
	want := map[string]string{
		"_id":            oid.Hex(),
		"title":          "新增确诊",
		"pubDate":        "2020-02-01 08:00:00",
		"createTime":     "1970-01-01 08:00:00",
		"modifyTime":     "",
		"crawlTime":      "2020-02-01 08:00:01",
		"dataInfoTime":   "not a number",
		"confirmedCount": "11791",
	}
	for _, f := range row {
		if got := FormatCell(f.Value, opts); got != want[f.Name] {
			t.Errorf("%s = %q, want %q", f.Name, got, want[f.Name])
		}
	}
}
