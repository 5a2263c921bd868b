package repository

import (
	"context"
	"edu_progress_backend/internal/config"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/util"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// CatalogSource 课程内容来源，每个课程一个 JSON 文档
type CatalogSource interface {
	Name() string
	LoadCourses(ctx context.Context) ([]*model.Course, error)
}

func decodeCourse(name string, r io.Reader) (*model.Course, error) {
	var course model.Course
	if err := json.NewDecoder(r).Decode(&course); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if course.ID == "" {
		return nil, fmt.Errorf("decode %s: course id is empty", name)
	}
	return &course, nil
}

// LocalCatalogSource 从本地目录读取 *.json
type LocalCatalogSource struct {
	Dir string
}

func (s *LocalCatalogSource) Name() string { return util.CatalogLocal }

func (s *LocalCatalogSource) LoadCourses(ctx context.Context) ([]*model.Course, error) {
	files, err := filepath.Glob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	courses := make([]*model.Course, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		course, err := decodeCourse(filepath.Base(path), f)
		f.Close()
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// MinioCatalogSource 从 MinIO bucket 前缀下读取 *.json
type MinioCatalogSource struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

func NewMinioCatalogSource(cfg *config.CatalogConfig) (*MinioCatalogSource, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioCatalogSource{Client: client, Bucket: cfg.MinioBucket, Prefix: cfg.MinioPrefix}, nil
}

func (s *MinioCatalogSource) Name() string { return util.CatalogMinio }

func (s *MinioCatalogSource) LoadCourses(ctx context.Context) ([]*model.Course, error) {
	var keys []string
	for obj := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: s.Prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.Bucket, s.Prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)

	courses := make([]*model.Course, 0, len(keys))
	for _, key := range keys {
		obj, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		course, err := decodeCourse(key, obj)
		obj.Close()
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// OSSCatalogSource 从阿里云 OSS bucket 前缀下读取 *.json
type OSSCatalogSource struct {
	Bucket *oss.Bucket
	Prefix string
}

func NewOSSCatalogSource(cfg *config.CatalogConfig) (*OSSCatalogSource, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSCatalogSource{Bucket: bucket, Prefix: cfg.OSSPrefix}, nil
}

func (s *OSSCatalogSource) Name() string { return util.CatalogOSS }

func (s *OSSCatalogSource) LoadCourses(ctx context.Context) ([]*model.Course, error) {
	var keys []string
	token := ""
	for {
		res, err := s.Bucket.ListObjectsV2(oss.Prefix(s.Prefix), oss.ContinuationToken(token), oss.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.Bucket.BucketName, s.Prefix, err)
		}
		for _, obj := range res.Objects {
			if strings.HasSuffix(obj.Key, ".json") {
				keys = append(keys, obj.Key)
			}
		}
		if !res.IsTruncated {
			break
		}
		token = res.NextContinuationToken
	}
	sort.Strings(keys)

	courses := make([]*model.Course, 0, len(keys))
	for _, key := range keys {
		body, err := s.Bucket.GetObject(key, oss.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		course, err := decodeCourse(key, body)
		body.Close()
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// NewCatalogSource 按配置选择来源，对象存储初始化失败时报错而不是静默回退
func NewCatalogSource(cfg *config.CatalogConfig) (CatalogSource, error) {
	switch cfg.Source {
	case util.CatalogMinio:
		return NewMinioCatalogSource(cfg)
	case util.CatalogOSS:
		return NewOSSCatalogSource(cfg)
	case "", util.CatalogLocal:
		return &LocalCatalogSource{Dir: cfg.LocalPath}, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
