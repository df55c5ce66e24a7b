// verify 对运行中的 API 服务做端到端冒烟验证：入库、查询、补全、删除
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type verifier struct {
	baseURL string
	client  *http.Client
	failed  int
}

func main() {
	var baseURL, ticker string

	cmd := &cobra.Command{
		Use:          "verify",
		Short:        "验证 API 服务的完整流程",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := &verifier{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}
			v.run(ticker)
			if v.failed > 0 {
				return fmt.Errorf("%d 项验证失败", v.failed)
			}
			color.Green("✓ 全部验证通过")
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "API 地址")
	cmd.Flags().StringVar(&ticker, "ticker", "AAPL", "用于验证的 ticker")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (v *verifier) run(ticker string) {
	v.expect("健康检查", http.MethodGet, "/health", nil, http.StatusOK, nil)
	v.expect("就绪检查", http.MethodGet, "/ready", nil, http.StatusOK, nil)

	// 清理上次残留，不存在时返回 404
	v.request(http.MethodDelete, "/company/"+url.PathEscape(ticker), nil)

	var ingested struct {
		Data struct {
			Ticker string `json:"ticker"`
			Name   string `json:"name"`
		} `json:"data"`
	}
	if !v.expect("入库", http.MethodPost, "/company", map[string]string{"ticker": ticker}, http.StatusOK, &ingested) {
		return
	}
	name := ingested.Data.Name
	color.White("  公司名: %s", name)

	v.expect("重复入库", http.MethodPost, "/company", map[string]string{"ticker": ticker}, http.StatusConflict, nil)

	var dividends struct {
		Data struct {
			Dividends []struct {
				Date     string `json:"date"`
				Dividend string `json:"dividend"`
			} `json:"dividends"`
		} `json:"data"`
	}
	if v.expect("查询配息", http.MethodGet, "/finance/dividend/"+url.PathEscape(name), nil, http.StatusOK, &dividends) {
		color.White("  配息记录: %d 条", len(dividends.Data.Dividends))
	}

	var names struct {
		Data []string `json:"data"`
	}
	prefix := name
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	if v.expect("自动补全", http.MethodGet, "/company/autocomplete?keyword="+url.QueryEscape(prefix), nil, http.StatusOK, &names) {
		v.check("补全结果包含公司", contains(names.Data, name))
	}

	v.expect("删除", http.MethodDelete, "/company/"+url.PathEscape(ticker), nil, http.StatusOK, nil)
	v.expect("删除后查询", http.MethodGet, "/finance/dividend/"+url.PathEscape(name), nil, http.StatusNotFound, nil)

	if v.expect("删除后补全", http.MethodGet, "/company/autocomplete?keyword="+url.QueryEscape(prefix), nil, http.StatusOK, &names) {
		v.check("补全结果不含已删除公司", !contains(names.Data, name))
	}
}

func (v *verifier) request(method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, v.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

func (v *verifier) expect(step, method, path string, body interface{}, wantStatus int, out interface{}) bool {
	status, data, err := v.request(method, path, body)
	if err != nil {
		return v.check(fmt.Sprintf("%s: %v", step, err), false)
	}
	if status != wantStatus {
		return v.check(fmt.Sprintf("%s: 状态码 %d，期望 %d: %s", step, status, wantStatus, data), false)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return v.check(fmt.Sprintf("%s: 解析响应失败: %v", step, err), false)
		}
	}
	return v.check(step, true)
}

func (v *verifier) check(step string, ok bool) bool {
	if ok {
		color.Green("✓ %s", step)
	} else {
		color.Red("✗ %s", step)
		v.failed++
	}
	return ok
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
