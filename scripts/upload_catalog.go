// 将本地课程 JSON 校验后上传到 MinIO，供 catalog.source=minio 使用
//
// 上传前会用与服务相同的规则校验（slug 全局唯一、章节/课时 ID 唯一），
// 校验失败时不会上传任何文件。
//
// 用法: go run scripts/upload_catalog.go -dir catalog -config configs/config.yaml

package main

import (
	"context"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/service"
	"flag"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Catalog struct {
		MinioEndpoint string `yaml:"minio_endpoint"`
		MinioAccessID string `yaml:"minio_access_key"`
		MinioSecret   string `yaml:"minio_secret_key"`
		MinioBucket   string `yaml:"minio_bucket"`
		MinioPrefix   string `yaml:"minio_prefix"`
		MinioUseSSL   bool   `yaml:"minio_use_ssl"`
	} `yaml:"catalog"`
}

func main() {
	dir := flag.String("dir", "catalog", "课程 JSON 目录")
	configPath := flag.String("config", "configs/config.yaml", "配置文件")
	flag.Parse()

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg catalogFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}
	mc := cfg.Catalog
	if mc.MinioBucket == "" {
		log.Fatal("catalog.minio_bucket 未配置")
	}

	ctx := context.Background()

	local := &repository.LocalCatalogSource{Dir: *dir}
	courses, err := local.LoadCourses(ctx)
	if err != nil {
		log.Fatalf("读取课程失败: %v", err)
	}
	if err := service.NewCatalogService(local).Load(courses); err != nil {
		log.Fatalf("课程校验失败: %v", err)
	}

	client, err := minio.New(mc.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.MinioAccessID, mc.MinioSecret, ""),
		Secure: mc.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("MinIO 连接失败: %v", err)
	}

	exists, err := client.BucketExists(ctx, mc.MinioBucket)
	if err != nil {
		log.Fatalf("检查 bucket 失败: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, mc.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			log.Fatalf("创建 bucket 失败: %v", err)
		}
	}

	files, _ := filepath.Glob(filepath.Join(*dir, "*.json"))
	for _, file := range files {
		key := path.Join(mc.MinioPrefix, filepath.Base(file))
		if _, err := client.FPutObject(ctx, mc.MinioBucket, key, file, minio.PutObjectOptions{
			ContentType: "application/json",
		}); err != nil {
			log.Fatalf("上传 %s 失败: %v", file, err)
		}
		log.Printf("已上传 %s -> %s/%s", file, mc.MinioBucket, key)
	}
	log.Printf("完成！共 %d 门课程", len(courses))
}
