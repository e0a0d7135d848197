// 手动触发一次测评生命周期扫描
//
// 服务运行时由调度器按 scheduler.spec 周期执行，此脚本用于停机维护后补跑，
// 或在没有部署服务实例的环境中推进状态。
//
// 用法: go run scripts/lifecycle_sweep.go [-at 2026-03-02T09:00:00Z]

package main

import (
	"classroom_backend/internal/config"
	"classroom_backend/internal/repository"
	"classroom_backend/internal/service"
	"classroom_backend/pkg/database"
	"classroom_backend/pkg/logger"
	"context"
	"flag"
	"log"
	"time"
)

func main() {
	at := flag.String("at", "", "以指定时刻（RFC3339）作为当前时间，默认取系统时间")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	now := time.Now()
	if *at != "" {
		if now, err = time.Parse(time.RFC3339, *at); err != nil {
			log.Fatalf("无效的时间参数: %v", err)
		}
	}

	lifecycle := service.NewLifecycleService(
		repository.NewAssessmentRepository(db),
		nil,
		nil,
		cfg.Scheduler.Workers,
		0,
	)

	log.Printf("手动触发生命周期扫描 (now=%s)...", now.UTC().Format(time.RFC3339))
	n, err := lifecycle.RunLifecycleSweep(context.Background(), now)
	if err != nil {
		log.Fatalf("扫描失败: %v", err)
	}
	log.Printf("完成！共 %d 个测评发生状态变更", n)
}
