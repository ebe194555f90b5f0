package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AnalyseDeCircuit/homedash/internal/auth"
)

// runHashPassword 输出可直接写入 ADMIN_PASS 的 bcrypt 哈希。
// 未通过参数提供密码时从 in 读取第一行，避免密码留在 shell 历史里。
func runHashPassword(password string, in io.Reader, out io.Writer) error {
	if password == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := auth.HashPasswordBcrypt(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
