package model

import "path"

// Collection 一个被监听的数据集合，Name 同时是 Mongo 集合名与导出文件名
type Collection struct {
	Name     string `yaml:"name" json:"name"`
	Endpoint string `yaml:"endpoint" json:"endpoint"` // 上游 API 路径后缀
}

// AreaCollection 按地区拆分的集合，CSV 导出时需要展开城市
const AreaCollection = "DXYArea"

// DefaultCollections 固定的四个集合，顺序即每轮处理顺序
func DefaultCollections() []Collection {
	return []Collection{
		{Name: "DXYOverall", Endpoint: "overall"},
		{Name: AreaCollection, Endpoint: "area"},
		{Name: "DXYNews", Endpoint: "news"},
		{Name: "DXYRumors", Endpoint: "rumors"},
	}
}

// IsArea 是否为地区集合
func (c Collection) IsArea() bool {
	return c.Name == AreaCollection
}

// SnapshotPath json/<Name>.json
func (c Collection) SnapshotPath() string {
	return path.Join("json", c.Name+".json")
}

// TablePath csv/<Name>.csv
func (c Collection) TablePath() string {
	return path.Join("csv", c.Name+".csv")
}

// TimeSeriesPath json/<Name>-TimeSeries.json
func (c Collection) TimeSeriesPath() string {
	return path.Join("json", c.Name+"-TimeSeries.json")
}
