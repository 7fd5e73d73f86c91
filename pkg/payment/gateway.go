package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// 回调参数里的签名字段
const SignatureParam = "secure_hash"

// Gateway 支付网关回调验签（VNPay 风格：排序参数 + HMAC-SHA512）
// 网关交互发生在订单创建之后、引擎事务之外，引擎只消费验签后的支付状态
type Gateway struct {
	hashSecret string
	returnURL  string
}

func NewGateway(hashSecret, returnURL string) *Gateway {
	return &Gateway{hashSecret: hashSecret, returnURL: returnURL}
}

func (g *Gateway) ReturnURL() string { return g.returnURL }

// Sign 对参数按键排序后计算 HMAC-SHA512
func (g *Gateway) Sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == SignatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params.Get(k)))
	}
	mac := hmac.New(sha512.New, []byte(g.hashSecret))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallback 校验回调签名
func (g *Gateway) VerifyCallback(params url.Values) bool {
	got := params.Get(SignatureParam)
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(got), []byte(g.Sign(params)))
}
