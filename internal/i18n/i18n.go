// 包 i18n：用户通知文本的本地化（golang.org/x/text/message 目录）
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 通知文本键；英文即键本身
const (
	MyPlaces          = "My places"
	ImportedPlaces    = "Imported %d place(s)"
	NoPlacesImported  = "No places imported"
	NoDataFound       = "No data found here"
	LoadingTimeSeries = "Loading time series"
	LoadingDatasets   = "Loading datasets"
	FetchFailed       = "Failed to load data: %v"
	InvalidFormat     = "Invalid %s: %v"
	ServerUpdated     = "Server resources updated"
	UpdatingResources = "Updating resources"
)

var catalog = map[language.Tag]map[string]string{
	language.German: {
		MyPlaces:          "Meine Orte",
		ImportedPlaces:    "%d Ort(e) importiert",
		NoPlacesImported:  "Keine Orte importiert",
		NoDataFound:       "Hier wurden keine Daten gefunden",
		LoadingTimeSeries: "Lade Zeitreihe",
		LoadingDatasets:   "Lade Datensätze",
		FetchFailed:       "Laden der Daten fehlgeschlagen: %v",
		InvalidFormat:     "Ungültiges %s: %v",
		ServerUpdated:     "Server-Ressourcen aktualisiert",
		UpdatingResources: "Aktualisiere Ressourcen",
	},
	language.Chinese: {
		MyPlaces:          "我的地点",
		ImportedPlaces:    "已导入 %d 个地点",
		NoPlacesImported:  "未导入任何地点",
		NoDataFound:       "此处没有数据",
		LoadingTimeSeries: "正在加载时间序列",
		LoadingDatasets:   "正在加载数据集",
		FetchFailed:       "数据加载失败：%v",
		InvalidFormat:     "%s 格式无效：%v",
		ServerUpdated:     "服务器资源已更新",
		UpdatingResources: "正在更新资源",
	},
}

func init() {
	for tag, entries := range catalog {
		for key, msg := range entries {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// T：按语言格式化通知；无法识别的语言回退到英文
func T(locale, key string, args ...any) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprintf(key, args...)
}
