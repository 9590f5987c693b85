package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// FileSHA256 计算文件SHA-256
func FileSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// BytesSHA256 计算字节数组SHA-256
func BytesSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashKey 生成 prefix:sha256(parts...) 形式的缓存键
func HashKey(prefix string, parts ...string) string {
	hash := sha256.New()
	hash.Write([]byte(strings.Join(parts, "\x00")))
	return prefix + ":" + hex.EncodeToString(hash.Sum(nil))
}
