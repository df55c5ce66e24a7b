package collector

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"DividendRadar/pkg/apperror"
	"DividendRadar/pkg/model"
)

const titleSeparator = " - "

// chartResponse 配息历史接口的响应结构
type chartResponse struct {
	Chart struct {
		Result []struct {
			Events struct {
				Dividends map[string]dividendEvent `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type dividendEvent struct {
	Amount json.Number `json:"amount"`
	Date   json.Number `json:"date"`
}

// parseProfileTitle 取第一个 h1 的文本，按 " - " 切分出公司名
func parseProfileTitle(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", apperror.Wrap(apperror.KindProfileParse, err, "解析HTML失败")
	}

	h1 := findFirst(doc, "h1")
	if h1 == nil {
		return "", apperror.New(apperror.KindProfileNotFound, "页面中没有标题元素")
	}

	title := strings.Join(strings.Fields(textContent(h1)), " ")
	parts := strings.SplitN(title, titleSeparator, 2)
	if len(parts) < 2 {
		return "", apperror.Newf(apperror.KindProfileParse, "标题格式不正确: %q", title)
	}

	name := strings.TrimSpace(parts[1])
	if name == "" {
		return "", apperror.Newf(apperror.KindProfileParse, "标题中公司名为空: %q", title)
	}

	return name, nil
}

// findFirst 深度优先查找第一个指定标签
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// parseDividendHistory 解析配息历史，缺少 dividends 字段视为没有配息
func parseDividendHistory(body []byte) ([]model.Dividend, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperror.Wrap(apperror.KindParseFailure, err, "解析配息历史JSON失败")
	}

	if len(resp.Chart.Result) == 0 {
		if resp.Chart.Error != nil {
			return nil, apperror.Newf(apperror.KindParseFailure, "数据源返回错误: %s %s",
				resp.Chart.Error.Code, resp.Chart.Error.Description)
		}
		return nil, apperror.New(apperror.KindParseFailure, "chart.result 为空")
	}

	events := resp.Chart.Result[0].Events.Dividends
	dividends := make([]model.Dividend, 0, len(events))

	for key, event := range events {
		dividend, err := toDividend(event)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindParseFailure, err, "配息记录格式错误: "+key)
		}
		dividends = append(dividends, dividend)
	}

	sort.Slice(dividends, func(i, j int) bool {
		return dividends[i].Date.Before(dividends[j].Date)
	})

	return dividends, nil
}

// toDividend 时间戳转为 UTC 日期（截断到天），金额保留两位小数
func toDividend(event dividendEvent) (model.Dividend, error) {
	seconds, err := event.Date.Int64()
	if err != nil {
		f, ferr := event.Date.Float64()
		if ferr != nil {
			return model.Dividend{}, err
		}
		seconds = int64(f)
	}

	amount, err := decimal.NewFromString(event.Amount.String())
	if err != nil {
		return model.Dividend{}, err
	}

	return model.Dividend{
		Date:   time.Unix(seconds, 0).UTC().Truncate(24 * time.Hour),
		Amount: amount.StringFixed(2),
	}, nil
}
