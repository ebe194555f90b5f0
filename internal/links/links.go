// Package links 管理仪表盘上展示的服务链接列表
package links

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLinks 链接文件格式或内容错误
var ErrInvalidLinks = errors.New("invalid links file")

// Defaults 未配置链接文件时使用的内置列表
func Defaults() []types.Link {
	return []types.Link{
		{
			Name:        "Cloudflare Tunnel",
			Icon:        "☁️",
			URL:         "https://dash.cloudflare.com/d282e15500a533d262c8610cb7b2a6dc",
			Description: "Tunnels & DNS",
		},
		{
			Name:        "Home Assistant",
			Icon:        "🏠",
			URL:         "http://192.168.1.55:8123",
			Description: "Domotica & sensori",
		},
		{
			Name:        "Docker UI",
			Icon:        "🐳",
			URL:         "https://192.168.1.55:9443",
			Description: "Gestione immagini e stack",
		},
		{
			Name:        "Dashboard",
			Icon:        "🖥️",
			URL:         "https://dashboard.home-servis.nl",
			Description: "Gestione server e terminale",
		},
	}
}

// file 链接文件的结构：
//
//	links:
//	  - name: Home Assistant
//	    icon: "🏠"
//	    url: http://192.168.1.55:8123
//	    description: Domotica & sensori
type file struct {
	Links []types.Link `yaml:"links"`
}

// Load 读取链接文件；path 为空时返回内置列表
func Load(path string) ([]types.Link, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read links file %s: %w", path, err)
	}
	list, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Parse 解析并校验 YAML 链接列表，未知字段视为错误
func Parse(data []byte) ([]types.Link, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLinks, err)
	}

	var errs []error
	for i := range f.Links {
		l := &f.Links[i]
		l.Name = strings.TrimSpace(l.Name)
		l.URL = strings.TrimSpace(l.URL)
		if err := validate(*l); err != nil {
			errs = append(errs, fmt.Errorf("link %d: %w", i+1, err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLinks, errors.Join(errs...))
	}
	if f.Links == nil {
		f.Links = []types.Link{}
	}
	return f.Links, nil
}

func validate(l types.Link) error {
	if l.Name == "" {
		return errors.New("name is required")
	}
	u, err := url.Parse(l.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("url %q is not absolute", l.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", l.URL)
	}
	return nil
}
