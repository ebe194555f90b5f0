// Package web 内置的默认页面，构建好的前端可以通过 --dist-dir 替换
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist public
var files embed.FS

// Dist 单页应用目录，根目录下必须有 index.html
func Dist() fs.FS {
	return mustSub("dist")
}

// Public 登录页目录，根目录下必须有 login.html
func Public() fs.FS {
	return mustSub("public")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
