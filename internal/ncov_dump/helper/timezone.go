package helper

import (
	"time"
)

// TimeFormat 导出文件中的时间格式
const TimeFormat = "2006-01-02 15:04:05"

// LoadTimeLocation 空字符串或 "Local" 使用进程本地时区
func LoadTimeLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// FromEpochMillis 毫秒时间戳转为指定时区的时间，秒以下截断而非四舍五入
func FromEpochMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ms/1000, 0).In(loc)
}
