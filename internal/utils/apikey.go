package utils

import (
	"fmt"
	"strings"
)

// API密钥格式: <prefix>-<random>，前缀段用于数据库查找
const (
	apiKeySecretLen = 40
	apiKeyPrefixLen = 16
)

// APIKeyParts 一次生成的密钥三元组
// Key 只在生成时返回一次，之后只保留 Prefix 和 Hash
type APIKeyParts struct {
	Key    string
	Prefix string
	Hash   string
}

// GenerateAPIKey 生成新密钥，prefix为部署级标识（如twa）
func GenerateAPIKey(prefix string) (*APIKeyParts, error) {
	secret, err := GenerateRandomString(apiKeySecretLen)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s-%s", prefix, secret)
	hash, err := HashSecret(key)
	if err != nil {
		return nil, err
	}

	return &APIKeyParts{
		Key:    key,
		Prefix: APIKeyPrefix(key),
		Hash:   hash,
	}, nil
}

// APIKeyPrefix 提取密钥的查找前缀
func APIKeyPrefix(key string) string {
	if len(key) <= apiKeyPrefixLen {
		return key
	}
	return key[:apiKeyPrefixLen]
}

// LooksLikeAPIKey 粗检密钥形态，避免无谓的数据库查询
func LooksLikeAPIKey(key, prefix string) bool {
	return strings.HasPrefix(key, prefix+"-") && len(key) > apiKeyPrefixLen
}

// VerifyAPIKey 验证密钥明文与存储哈希
func VerifyAPIKey(key, hash string) bool {
	ok, err := VerifySecret(key, hash)
	return err == nil && ok
}
