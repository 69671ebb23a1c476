package model

// AreaRecord DXYArea 集合中的一条省级记录。
// 指针字段为 nil 表示缺失或为 null。
type AreaRecord struct {
	ContinentName        *string  `bson:"continentName,omitempty"`
	ContinentEnglishName *string  `bson:"continentEnglishName,omitempty"`
	CountryName          *string  `bson:"countryName,omitempty"`
	CountryEnglishName   *string  `bson:"countryEnglishName,omitempty"`
	ProvinceName         *string  `bson:"provinceName,omitempty"`
	ProvinceEnglishName  *string  `bson:"provinceEnglishName,omitempty"`
	LocationID           *float64 `bson:"locationId,omitempty"`

	ConfirmedCount *float64 `bson:"confirmedCount,omitempty"`
	SuspectedCount *float64 `bson:"suspectedCount,omitempty"`
	CuredCount     *float64 `bson:"curedCount,omitempty"`
	DeadCount      *float64 `bson:"deadCount,omitempty"`

	Cities     []AreaCity `bson:"cities,omitempty"`
	UpdateTime *float64   `bson:"updateTime,omitempty"` // 毫秒时间戳
}

// AreaCity 省级记录下的城市
type AreaCity struct {
	CityName        *string  `bson:"cityName,omitempty"`
	CityEnglishName *string  `bson:"cityEnglishName,omitempty"`
	LocationID      *float64 `bson:"locationId,omitempty"`

	ConfirmedCount *float64 `bson:"confirmedCount,omitempty"`
	SuspectedCount *float64 `bson:"suspectedCount,omitempty"`
	CuredCount     *float64 `bson:"curedCount,omitempty"`
	DeadCount      *float64 `bson:"deadCount,omitempty"`
}

// Empty 城市对象没有任何字段，例如 {}
func (c AreaCity) Empty() bool {
	return c == AreaCity{}
}
