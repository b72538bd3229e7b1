package reply

// DefaultPool — запасные фразы на случай, когда модель недоступна.
var DefaultPool = []string{
	"来了来了，每日打卡",
	"前排支持一下",
	"先赞后看，养成好习惯",
	"前排占座，支持楼主",
	"每天都来报个到",
	"打卡签到，顺便支持",
	"准时报到，风雨无阻",
	"日常签到，顺手点赞",
	"感谢分享，收藏了",
	"好东西，马克一下",
	"支持支持，加油加油",
	"学到了，感谢大佬",
	"这个不错，先收藏",
	"感谢楼主无私分享",
	"涨知识了，谢谢分享",
	"大佬出品，必属精品",
	"写得很用心，感谢分享",
	"干货满满，必须收藏",
	"不错不错，持续关注",
	"看看有什么新东西",
	"又学到新东西了",
	"路过看看，顺便支持",
	"好帖必须顶一下",
	"一直在关注这个方向",
	"思路很清晰，赞一个",
	"这个话题值得深入讨论",
	"刚好需要，太及时了",
	"这个值得收藏起来",
	"终于等到更新了",
	"坐等后续更新内容",
	"越来越好了，继续加油",
	"日常逛论坛，支持一波",
	"有意思，回头试试看",
	"正好在找这个，谢了",
	"持续关注中，期待后续",
	"不明觉厉，先收藏了",
	"刷论坛看到好帖，留个脚印",
	"这个帖子来得正是时候",
	"请问有后续更新计划吗",
	"这个方案在生产环境验证过吗",
	"想问下性能表现怎么样",
	"有没有更详细的教程链接",
	"好奇这个是怎么实现的",
	"膜拜大佬，我先跪了",
	"看完感觉自己又行了",
	"先收藏，指不定哪天用上",
	"默默点赞然后溜了",
	"我什么时候才能写出这种东西",
	"这波操作我给满分",
	"实名羡慕，什么时候能教教我",
}

// DefaultCategories — id категории форума и её название для подсказки модели.
var DefaultCategories = map[int]string{
	1:  "bug反馈",
	2:  "功能",
	4:  "一般讨论",
	5:  "扯淡闲聊",
	7:  "开发调优",
	10: "文档",
	11: "资源荟萃",
	13: "跳蚤市场",
	14: "非我莫属",
	15: "深度学习",
	17: "运营反馈",
	19: "福利羊毛",
	22: "搞七捻三",
	24: "靠谱推荐",
	25: "前沿快讯",
	27: "LINUX DO Wiki",
	28: "插件开发",
	34: "读书会",
	35: "AI探索",
	36: "起始页",
}
