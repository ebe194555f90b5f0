// Package assets 提供登录页、单页应用和静态资源的服务
package assets

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/AnalyseDeCircuit/homedash/web"
)

const (
	indexFile   = "index.html"
	loginFile   = "login.html"
	assetPrefix = "assets/"

	cacheNoCache   = "no-cache"
	cacheImmutable = "public, max-age=31536000, immutable"
)

// Bundle 前端文件集合。启动时为每个文件计算内容哈希作为 ETag，
// 前端重新构建后需要重启服务。
type Bundle struct {
	dist   fs.FS
	public fs.FS
	// etags 键为 "dist/<name>" 或 "public/<name>"
	etags map[string]string
}

// Open 按目录加载前端文件，目录为空时使用内置页面
func Open(distDir, publicDir string) (*Bundle, error) {
	dist, public := web.Dist(), web.Public()
	if distDir != "" {
		dist = os.DirFS(distDir)
	}
	if publicDir != "" {
		public = os.DirFS(publicDir)
	}
	return New(dist, public)
}

// New 使用给定文件系统创建 Bundle，dist 必须包含 index.html，public 必须包含 login.html
func New(dist, public fs.FS) (*Bundle, error) {
	b := &Bundle{dist: dist, public: public, etags: make(map[string]string)}

	if err := b.hashAll("dist", dist); err != nil {
		return nil, err
	}
	if err := b.hashAll("public", public); err != nil {
		return nil, err
	}
	if _, ok := b.etags["dist/"+indexFile]; !ok {
		return nil, fmt.Errorf("client bundle has no %s", indexFile)
	}
	if _, ok := b.etags["public/"+loginFile]; !ok {
		return nil, fmt.Errorf("public directory has no %s", loginFile)
	}
	return b, nil
}

func (b *Bundle) hashAll(root string, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scan %s: %w", root, err)
		}
		if d.IsDir() {
			return nil
		}
		hash, err := computeFileHash(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to compute hash for %s/%s: %w", root, name, err)
		}
		b.etags[root+"/"+name] = hash
		return nil
	})
}

func computeFileHash(fsys fs.FS, name string) (string, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil))[:16], nil
}

// ServeLogin 返回登录页
func (b *Bundle) ServeLogin(w http.ResponseWriter, r *http.Request) {
	b.serveFile(w, r, "public", b.public, loginFile, cacheNoCache)
}

// ServeIndex 返回单页应用入口
func (b *Bundle) ServeIndex(w http.ResponseWriter, r *http.Request) {
	b.serveFile(w, r, "dist", b.dist, indexFile, cacheNoCache)
}

// ServeDist 返回 dist 中的静态文件。找不到时 /assets/ 下返回 404，
// 其余路径回退到 index.html 交给前端路由。
func (b *Bundle) ServeDist(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || name == indexFile {
		b.ServeIndex(w, r)
		return
	}

	if _, ok := b.etags["dist/"+name]; ok {
		cc := cacheNoCache
		if strings.HasPrefix(name, assetPrefix) {
			cc = cacheImmutable
		}
		b.serveFile(w, r, "dist", b.dist, name, cc)
		return
	}

	// 资源目录本身和其中缺失的文件都是 404，不回退到应用页面
	if name+"/" == assetPrefix || strings.HasPrefix(name, assetPrefix) {
		http.NotFound(w, r)
		return
	}
	b.ServeIndex(w, r)
}

func (b *Bundle) serveFile(w http.ResponseWriter, r *http.Request, root string, fsys fs.FS, name, cacheControl string) {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		content = bytes.NewReader(data)
	}

	if etag, ok := b.etags[root+"/"+name]; ok {
		w.Header().Set("ETag", `"`+etag+`"`)
	}
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, name, st.ModTime(), content)
}
